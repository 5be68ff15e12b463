package checkpointscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/cmd/tutor/storeflags"
	"github.com/papercomputeco/tutor/pkg/cliui"
	"github.com/papercomputeco/tutor/pkg/storage"
)

func newListCmd() *cobra.Command {
	var (
		limit  uint
		before string
	)

	cmd := &cobra.Command{
		Use:   "list <thread>",
		Short: "List checkpoints of a thread, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, _, err := storeflags.Open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer stores.Close()

			var cps []*storage.Checkpoint
			if before != "" {
				cps, err = stores.Checkpoints.ListBefore(cmd.Context(), args[0], before, int(limit)) //nolint:gosec // small flag value
			} else {
				cps, err = stores.Checkpoints.List(cmd.Context(), args[0], int(limit)) //nolint:gosec // small flag value
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(cps) == 0 {
				fmt.Fprintf(w, "\n  %s No checkpoints for %s.\n\n", cliui.DimStyle.Render("●"), args[0])
				return nil
			}

			fmt.Fprintln(w)
			for _, cp := range cps {
				compacted := ""
				if cp.State.Summary != "" {
					compacted = cliui.DimStyle.Render(" (summarized)")
				}
				fmt.Fprintf(w, "  %s  %s  %s%s\n",
					cliui.HashStyle.Render(cp.ID),
					cliui.DimStyle.Render(cp.CreatedAt.Local().Format("2006-01-02 15:04:05")),
					fmt.Sprintf("%d messages", cp.MessageCount),
					compacted,
				)
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().UintVarP(&limit, "limit", "n", uint(storage.DefaultCheckpointLimit), "Maximum number of checkpoints to list")
	cmd.Flags().StringVar(&before, "before", "", "Continue the listing after this checkpoint id")

	return cmd
}
