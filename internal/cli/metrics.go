package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/phaseops/internal/query"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display execution metrics",
	Long: `Display the metrics of the latest daily report together with aggregated
history derived from the event log.

History includes cycles run, settled tasks by status and by owner, the average
task duration and the overall success rate.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query service not initialized")
		}

		now := time.Now().UTC()
		if Clock != nil {
			now = Clock.Now().UTC()
		}
		since, err := query.ParseSince(metricsSince, now)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		view, err := Queries.Metrics(since)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		if metricsJSON {
			return printJSON(cmd.OutOrStdout(), view)
		}
		printMetrics(cmd.OutOrStdout(), view, since)
		return nil
	},
}

func printMetrics(w io.Writer, view query.MetricsView, since time.Time) {
	live := view.Live
	fmt.Fprintln(w, "Latest report")
	if live.LastReportDate == "" {
		fmt.Fprintln(w, "  No reports yet.")
	} else {
		fmt.Fprintf(w, "  %-24s %s\n", "Date:", live.LastReportDate)
		fmt.Fprintf(w, "  %-24s %d\n", "Tasks:", live.TasksToday)
		fmt.Fprintf(w, "  %-24s %s%%\n", "Success rate:", live.SuccessRate)
		fmt.Fprintf(w, "  %-24s %d%%\n", "Efficiency:", live.Efficiency)
		fmt.Fprintf(w, "  %-24s %d min\n", "Total time:", live.TotalTimeMinutes)
		fmt.Fprintf(w, "  %-24s %ds\n", "Average time:", live.AverageTimeSeconds)
	}

	m := view.History
	if m == nil {
		return
	}

	fmt.Fprintf(w, "\nHistory (since %s)\n", since.Format("2006-01-02"))
	fmt.Fprintf(w, "  %-24s %d\n", "Events recorded:", m.EventCount)
	fmt.Fprintf(w, "  %-24s %d\n", "Cycles run:", m.CyclesRun)
	fmt.Fprintf(w, "  %-24s %d\n", "Tasks settled:", m.TasksSettled)
	fmt.Fprintf(w, "  %-24s %s%%\n", "Success rate:", m.SuccessRate)
	fmt.Fprintf(w, "  %-24s %.0fs\n", "Average duration:", m.AverageDurationSeconds)

	printCounts(w, "Tasks by status:", m.TasksByStatus)
	printCounts(w, "Tasks by owner:", m.TasksByOwner)

	if m.OldestEvent != nil {
		fmt.Fprintf(w, "\n  %-24s %s\n", "Oldest event:", m.OldestEvent.Format(time.RFC3339))
	}
	if m.NewestEvent != nil {
		fmt.Fprintf(w, "  %-24s %s\n", "Newest event:", m.NewestEvent.Format(time.RFC3339))
	}
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\n  %s\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "    %-20s %d\n", k+":", counts[k])
	}
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for history (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
