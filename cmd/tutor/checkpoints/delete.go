package checkpointscmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/cmd/tutor/storeflags"
	"github.com/papercomputeco/tutor/pkg/cliui"
)

func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <thread>",
		Short: "Delete every checkpoint and message of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("deleting a thread cannot be undone: pass --yes to confirm")
			}

			stores, _, err := storeflags.Open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer stores.Close()

			n, err := stores.Checkpoints.DeleteThread(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Deleted %s %s\n\n",
				cliui.SuccessMark,
				cliui.HashStyle.Render(args[0]),
				cliui.DimStyle.Render(fmt.Sprintf("(%d checkpoints)", n)),
			)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")

	return cmd
}
