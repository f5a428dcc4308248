package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/phaseops/internal/storage"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

var reportJSON bool

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List the dates of persisted daily reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query service not initialized")
		}

		dates, err := Queries.Reports()
		if err != nil {
			return fmt.Errorf("listing reports: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(dates) == 0 {
			fmt.Fprintln(w, "No reports found.")
			return nil
		}
		for _, d := range dates {
			fmt.Fprintln(w, d)
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [date]",
	Short: "Show a daily report",
	Long: `Show the daily report for a date (YYYY-MM-DD). Without a date the most
recent report is shown.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeReportDates,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query service not initialized")
		}

		var date string
		if len(args) == 1 {
			date = args[0]
		} else {
			dates, err := Queries.Reports()
			if err != nil {
				return fmt.Errorf("listing reports: %w", err)
			}
			if len(dates) == 0 {
				return fmt.Errorf("no reports found")
			}
			date = dates[len(dates)-1]
		}

		report, err := Queries.Report(date)
		if err != nil {
			if errors.Is(err, storage.ErrReportNotFound) {
				return fmt.Errorf("no report for %s", date)
			}
			return fmt.Errorf("loading report: %w", err)
		}

		if reportJSON {
			return printJSON(cmd.OutOrStdout(), report)
		}
		printReport(cmd.OutOrStdout(), *report)
		return nil
	},
}

func printReport(w io.Writer, r models.DailyReport) {
	fmt.Fprintf(w, "Daily report %s (day %d, week %d)\n\n", r.Date, r.Day, r.Week)
	fmt.Fprintf(w, "  %-16s %d\n", "Tasks:", r.Summary.Total)
	fmt.Fprintf(w, "  %-16s %d\n", "Completed:", r.Summary.Completed)
	fmt.Fprintf(w, "  %-16s %d\n", "Failed:", r.Summary.Failed)
	fmt.Fprintf(w, "  %-16s %d\n", "Blocked:", r.Summary.Blocked)
	fmt.Fprintf(w, "  %-16s %s%%\n", "Success rate:", r.Summary.SuccessRate)
	fmt.Fprintf(w, "  %-16s %d%%\n", "Efficiency:", r.Performance.Efficiency)
	fmt.Fprintf(w, "  %-16s %d min\n", "Total time:", r.Performance.TotalTimeMinutes)
	fmt.Fprintf(w, "  %-16s %ds\n", "Average time:", r.Performance.AverageTimeSeconds)
	fmt.Fprintf(w, "  %-16s day %d (week %d), %d task(s)\n", "Next:", r.NextDay.Day, r.NextDay.Week, r.NextDay.Tasks)
}

// completeReportDates completes the dates of persisted reports.
func completeReportDates(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Queries == nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	dates, err := Queries.Reports()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, d := range dates {
		if strings.HasPrefix(d, toComplete) {
			out = append(out, d)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Output the report as JSON")
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(reportCmd)
}
