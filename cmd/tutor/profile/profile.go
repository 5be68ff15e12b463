// Package profilecmder provides the profile command for reading and
// updating learner profiles.
package profilecmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/cmd/tutor/storeflags"
)

const profileLongDesc string = `Read and update learner profiles.

A profile holds the learner's proficiency level, which controls how
detailed explanations are, an optional learning goal, and the learner's
recurring mistakes.

Levels:
  detailed   Full explanations of every correction (default)
  concise    Short explanations for advanced learners

Examples:
  tutor profile get minji
  tutor profile set minji --level concise
  tutor profile set minji --goal "business emails"`

const profileShortDesc string = "Read and update learner profiles"

func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: profileShortDesc,
		Long:  profileLongDesc,
	}

	storeflags.Register(cmd)

	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newSetCmd())

	return cmd
}
