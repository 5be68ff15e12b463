package profilecmder

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/cmd/tutor/storeflags"
	"github.com/papercomputeco/tutor/pkg/cliui"
	"github.com/papercomputeco/tutor/pkg/storage"
)

const getShortDesc string = "Show a learner profile"

func newGetCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <user>",
		Short: getShortDesc,
		Long:  "Show a learner's level, learning goal and recurring mistakes. A missing profile is created with the default level.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, _, err := storeflags.Open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer stores.Close()

			p, err := stores.Profiles.GetOrCreate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			printProfile(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the profile as JSON")

	return cmd
}

func printProfile(w io.Writer, p *storage.UserProfile) {
	goal := cliui.DimStyle.Render("<not set>")
	if p.LearningGoal != "" {
		goal = cliui.ValueStyle.Render(p.LearningGoal)
	}

	fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Learner "+p.UserID))
	fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render("Level:"), cliui.NameStyle.Render(p.Level))
	fmt.Fprintf(w, "  %s   %s\n", cliui.KeyStyle.Render("Goal:"), goal)
	fmt.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render("Since:"), cliui.DimStyle.Render(p.CreatedAt.Format(time.DateOnly)))

	if len(p.RecurringMistakes) == 0 {
		fmt.Fprintf(w, "  %s No mistakes recorded yet.\n\n", cliui.DimStyle.Render("●"))
		return
	}

	fmt.Fprintf(w, "  %s\n", cliui.KeyStyle.Render("Recurring mistakes:"))
	for _, m := range p.RecurringMistakes {
		fmt.Fprintf(w, "    %s %s %s\n",
			cliui.HashStyle.Render(fmt.Sprintf("%3dx", m.Count)),
			cliui.NameStyle.Render(m.Pattern),
			cliui.DimStyle.Render("("+m.Category+")"),
		)
	}
	fmt.Fprintln(w)
}
