package checkpointscmder

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/cmd/tutor/storeflags"
	"github.com/papercomputeco/tutor/pkg/cliui"
	"github.com/papercomputeco/tutor/pkg/storage"
	"github.com/papercomputeco/tutor/pkg/utils"
)

func newShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <thread> [checkpoint]",
		Short: "Show the conversation state of a checkpoint (latest by default)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, _, err := storeflags.Open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer stores.Close()

			var cp *storage.Checkpoint
			if len(args) == 2 {
				cp, err = stores.Checkpoints.Get(cmd.Context(), args[0], args[1])
			} else {
				cp, err = stores.Checkpoints.Latest(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			if cp == nil {
				return fmt.Errorf("thread %s has no checkpoints", args[0])
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cp)
			}
			printCheckpoint(cmd.OutOrStdout(), cp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the checkpoint as JSON")

	return cmd
}

func printCheckpoint(w io.Writer, cp *storage.Checkpoint) {
	fmt.Fprintf(w, "\n  %s %s\n", cliui.KeyStyle.Render("Checkpoint:"), cliui.HashStyle.Render(cp.ID))
	fmt.Fprintf(w, "  %s     %s\n", cliui.KeyStyle.Render("Thread:"), cp.ThreadID)
	fmt.Fprintf(w, "  %s    %s\n", cliui.KeyStyle.Render("Learner:"), cliui.NameStyle.Render(cp.State.UserID))
	fmt.Fprintf(w, "  %s   %d\n\n", cliui.KeyStyle.Render("Messages:"), cp.MessageCount)

	if cp.State.Summary != "" {
		fmt.Fprintf(w, "  %s\n  %s\n\n", cliui.KeyStyle.Render("Summary:"), cliui.ValueStyle.Render(cp.State.Summary))
	}

	for _, m := range cp.State.Messages {
		fmt.Fprintf(w, "  %s %s\n", cliui.DimStyle.Render(fmt.Sprintf("%-9s", m.Role+">")), utils.Truncate(m.Content, 120))
	}
	fmt.Fprintln(w)
}
