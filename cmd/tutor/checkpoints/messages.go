package checkpointscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/cmd/tutor/storeflags"
	"github.com/papercomputeco/tutor/pkg/cliui"
)

func newMessagesCmd() *cobra.Command {
	var limit uint

	cmd := &cobra.Command{
		Use:   "messages <thread>",
		Short: "Print the full transcript of a thread, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, _, err := storeflags.Open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer stores.Close()

			msgs, err := stores.Driver.ListMessages(cmd.Context(), args[0], int(limit)) //nolint:gosec // small flag value
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w)
			for _, m := range msgs {
				fmt.Fprintf(w, "  %s %s %s\n",
					cliui.DimStyle.Render(m.CreatedAt.Local().Format("15:04:05")),
					cliui.KeyStyle.Render(fmt.Sprintf("%-9s", m.Role+">")),
					m.Content,
				)
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().UintVarP(&limit, "limit", "n", 0, "Only print the most recent messages")

	return cmd
}
