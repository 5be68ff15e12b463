// Package mistakescmder provides the mistakes command which lists the
// mistake patterns recorded for a learner.
package mistakescmder

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/cmd/tutor/storeflags"
	"github.com/papercomputeco/tutor/pkg/cliui"
	"github.com/papercomputeco/tutor/pkg/config"
	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/storage"
	"github.com/papercomputeco/tutor/pkg/utils"
)

type mistakesCommander struct {
	category string
	days     uint
	limit    uint
	asJSON   bool
}

const mistakesLongDesc string = `List the mistake patterns recorded for a learner, most frequent first.

Examples:
  tutor mistakes minji
  tutor mistakes minji --category grammar
  tutor mistakes minji --days 7 --limit 3
  tutor mistakes minji --json`

const mistakesShortDesc string = "List a learner's mistake patterns"

func NewMistakesCmd() *cobra.Command {
	cmder := &mistakesCommander{}

	cmd := &cobra.Command{
		Use:   "mistakes <user>",
		Short: mistakesShortDesc,
		Long:  mistakesLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.category, "category", "c", "", "Only list one category ("+strings.Join(memory.Categories, ", ")+")")
	cmd.Flags().UintVar(&cmder.days, "days", 0, "Only list patterns seen within this many days")
	cmd.Flags().UintVarP(&cmder.limit, "limit", "n", 0, "Maximum number of patterns to list")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the patterns as JSON")
	_ = cmd.RegisterFlagCompletionFunc("category", cobra.FixedCompletions(memory.Categories, cobra.ShellCompDirectiveNoFileComp))

	storeflags.Register(cmd)

	return cmd
}

func (c *mistakesCommander) run(cmd *cobra.Command, userID string) error {
	if c.category != "" && !memory.ValidCategory(c.category) {
		return fmt.Errorf("unknown category %q: must be one of %s", c.category, strings.Join(memory.Categories, ", "))
	}

	stores, _, err := storeflags.Open(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer stores.Close()

	var mistakes []*storage.RecurringMistake
	switch {
	case c.category != "":
		mistakes, err = stores.Mistakes.ByCategory(cmd.Context(), userID, c.category)
	case c.days > 0:
		mistakes, err = stores.Mistakes.Recent(cmd.Context(), userID, config.Days(c.days), int(c.limit)) //nolint:gosec // small flag value
	default:
		mistakes, err = stores.Mistakes.All(cmd.Context(), userID)
	}
	if err != nil {
		return err
	}

	mistakes = c.filter(mistakes)
	if mistakes == nil {
		mistakes = []*storage.RecurringMistake{}
	}

	if c.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(mistakes)
	}
	printMistakes(cmd.OutOrStdout(), userID, mistakes)
	return nil
}

// filter applies --days and --limit to listings that were not already
// narrowed by the store.
func (c *mistakesCommander) filter(in []*storage.RecurringMistake) []*storage.RecurringMistake {
	out := in
	if c.category != "" && c.days > 0 {
		since := time.Now().Add(-config.Days(c.days))
		out = out[:0:0]
		for _, m := range in {
			if m.LastSeen.After(since) {
				out = append(out, m)
			}
		}
	}
	if c.limit > 0 && uint(len(out)) > c.limit {
		out = out[:c.limit]
	}
	return out
}

func printMistakes(w io.Writer, userID string, mistakes []*storage.RecurringMistake) {
	fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Mistakes of "+userID))

	if len(mistakes) == 0 {
		fmt.Fprintf(w, "  %s No mistakes recorded.\n\n", cliui.DimStyle.Render("●"))
		return
	}

	for _, m := range mistakes {
		fmt.Fprintf(w, "  %s %s %s  %s\n",
			cliui.HashStyle.Render(fmt.Sprintf("%3dx", m.Count)),
			cliui.NameStyle.Render(m.Pattern),
			cliui.DimStyle.Render("("+m.Category+")"),
			cliui.DimStyle.Render("last seen "+m.LastSeen.Format(time.DateOnly)),
		)
		for _, ex := range m.Examples {
			fmt.Fprintf(w, "       %s\n", cliui.ValueStyle.Render("“"+utils.Truncate(ex, 60)+"”"))
		}
	}
	fmt.Fprintln(w)
}
