package profilecmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/cmd/tutor/storeflags"
	"github.com/papercomputeco/tutor/pkg/cliui"
	"github.com/papercomputeco/tutor/pkg/profile"
)

const setShortDesc string = "Update a learner profile"

func newSetCmd() *cobra.Command {
	var level, goal string

	cmd := &cobra.Command{
		Use:   "set <user>",
		Short: setShortDesc,
		Long:  "Update a learner's level and/or learning goal. Fields that are not passed are left unchanged.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u profile.Update
			if cmd.Flags().Changed("level") {
				u.Level = &level
			}
			if cmd.Flags().Changed("goal") {
				u.LearningGoal = &goal
			}
			if u.Level == nil && u.LearningGoal == nil {
				return errors.New("nothing to update: pass --level and/or --goal")
			}

			stores, _, err := storeflags.Open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer stores.Close()

			out, err := stores.Profiles.Update(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.PreviousLevel != out.NewLevel {
				fmt.Fprintf(w, "\n  %s Level %s → %s\n",
					cliui.SuccessMark,
					cliui.DimStyle.Render(out.PreviousLevel),
					cliui.NameStyle.Render(out.NewLevel),
				)
			}
			printProfile(w, out.Profile)
			return nil
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.Flags().StringVar(&level, "level", "", "Proficiency level (detailed, concise)")
	cmd.Flags().StringVar(&goal, "goal", "", "Learning goal")
	_ = cmd.RegisterFlagCompletionFunc("level", cobra.FixedCompletions(profile.Levels, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}
