// Package tutorcmder
package tutorcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/tutor/cmd/tutor/auth"
	chatcmder "github.com/papercomputeco/tutor/cmd/tutor/chat"
	checkpointscmder "github.com/papercomputeco/tutor/cmd/tutor/checkpoints"
	configcmder "github.com/papercomputeco/tutor/cmd/tutor/config"
	mistakescmder "github.com/papercomputeco/tutor/cmd/tutor/mistakes"
	profilecmder "github.com/papercomputeco/tutor/cmd/tutor/profile"
	servecmder "github.com/papercomputeco/tutor/cmd/tutor/serve"
	statscmder "github.com/papercomputeco/tutor/cmd/tutor/stats"
	versioncmder "github.com/papercomputeco/tutor/cmd/version"
)

const tutorLongDesc string = `Tutor is an English tutor for Korean learners that remembers the
mistakes you make and adapts its explanations to you.

Get started:
  tutor auth anthropic          Store a provider API key
  tutor chat -u <you>           Practice in the terminal
  tutor serve                   Run the HTTP API and MCP server

Inspect what the tutor remembers:
  tutor profile get <user>      Level, goal and frequent mistakes
  tutor mistakes <user>         Recorded mistake patterns
  tutor stats <user>            Daily learning stats
  tutor checkpoints list <id>   Conversation checkpoints of a thread`

const tutorShortDesc string = "Tutor - adaptive English correction with memory"

func NewTutorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tutor",
		Short:         tutorShortDesc,
		Long:          tutorLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .tutor/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(profilecmder.NewProfileCmd())
	cmd.AddCommand(mistakescmder.NewMistakesCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(checkpointscmder.NewCheckpointsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
