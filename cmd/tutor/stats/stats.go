// Package statscmder provides the stats command which shows a learner's
// daily practice aggregates.
package statscmder

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/cmd/tutor/storeflags"
	"github.com/papercomputeco/tutor/pkg/cliui"
	"github.com/papercomputeco/tutor/pkg/stats"
)

const statsLongDesc string = `Show a learner's practice statistics.

Turns and mistakes are counted per calendar day (UTC). The report covers
the last --days days including today.

Examples:
  tutor stats minji
  tutor stats minji --days 30
  tutor stats minji --json`

const statsShortDesc string = "Show a learner's daily statistics"

func NewStatsCmd() *cobra.Command {
	var (
		days   uint
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "stats <user>",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, _, err := storeflags.Open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer stores.Close()

			report, err := stores.Stats.Range(cmd.Context(), args[0], int(days)) //nolint:gosec // small flag value
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().UintVar(&days, "days", stats.DefaultDays, "Number of days to report")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	storeflags.Register(cmd)

	return cmd
}

func printReport(w io.Writer, r *stats.Report) {
	fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render(fmt.Sprintf("Last %d days of %s", r.Days, r.UserID)))
	fmt.Fprintf(w, "  %s    %s\n", cliui.KeyStyle.Render("Turns:"), cliui.ValueStyle.Render(fmt.Sprint(r.TotalTurns)))
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Mistakes:"), cliui.ValueStyle.Render(fmt.Sprint(r.TotalMistakes)))
	fmt.Fprintf(w, "  %s     %s\n\n", cliui.KeyStyle.Render("Rate:"), cliui.ValueStyle.Render(fmt.Sprintf("%.0f%%", r.MistakeRate*100)))

	if len(r.Breakdown) > 0 {
		fmt.Fprintf(w, "  %s\n", cliui.KeyStyle.Render("By category:"))
		for _, cat := range slices.Sorted(maps.Keys(r.Breakdown)) {
			fmt.Fprintf(w, "    %-14s %s\n", cat, cliui.HashStyle.Render(fmt.Sprint(r.Breakdown[cat])))
		}
		fmt.Fprintln(w)
	}

	for _, d := range r.Daily {
		fmt.Fprintf(w, "  %s  %s\n",
			cliui.DimStyle.Render(d.Day),
			fmt.Sprintf("%d turns, %d mistakes", d.TotalTurns, d.TotalMistakes),
		)
	}
	if len(r.Daily) > 0 {
		fmt.Fprintln(w)
	}
}
