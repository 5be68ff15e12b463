// Package checkpointscmder provides the checkpoints command for inspecting
// and deleting the conversation history of a thread.
package checkpointscmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/cmd/tutor/storeflags"
)

const checkpointsLongDesc string = `Inspect the conversation history of a thread.

Every completed turn appends a checkpoint holding the full conversation
state: the retained messages, the running summary of compacted messages
and the total message count. The transcript keeps every message ever
exchanged, including the ones folded into the summary.

Examples:
  tutor checkpoints list <thread>
  tutor checkpoints list <thread> --limit 5 --before <checkpoint>
  tutor checkpoints show <thread>
  tutor checkpoints show <thread> <checkpoint>
  tutor checkpoints messages <thread>
  tutor checkpoints delete <thread> --yes`

const checkpointsShortDesc string = "Inspect conversation checkpoints"

func NewCheckpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "checkpoints",
		Aliases: []string{"cp"},
		Short:   checkpointsShortDesc,
		Long:    checkpointsLongDesc,
	}

	storeflags.Register(cmd)

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newMessagesCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}
