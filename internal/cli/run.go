package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/phaseops/internal/core"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

var (
	runDay  int
	runJSON bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily cycle",
	Long: `Run the daily cycle for today's day of the phase.

Every task scheduled for the day is gated on its dependencies, executed and
reported in selection order, with a pause between consecutive tasks. The daily
report is persisted and sent once all tasks have settled. A summary is printed
even when the cycle fails; a report persistence failure makes the command exit
non-zero.

Use --day to run a specific day (clamped to the phase).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var (
			out core.CycleOutcome
			err error
		)
		if cmd.Flags().Changed("day") {
			out, err = Orchestrator.RunCycleForDay(ctx, runDay)
		} else {
			out, err = Orchestrator.RunCycle(ctx)
		}

		if runJSON {
			data, jerr := json.MarshalIndent(out.Report, "", "  ")
			if jerr != nil {
				return fmt.Errorf("formatting report as JSON: %w", jerr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), renderCycleSummary(out))
		}

		if err != nil {
			return fmt.Errorf("running daily cycle: %w", err)
		}
		return nil
	},
}

// renderCycleSummary formats the console summary of a cycle.
func renderCycleSummary(out core.CycleOutcome) string {
	var b strings.Builder

	title := fmt.Sprintf(" Day %d  Week %d  %s ", out.Day, core.WeekForDay(out.Day), core.DateKey(out.Date))
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	if len(out.Results) == 0 {
		b.WriteString("  No tasks scheduled.\n")
	}
	for _, r := range out.Results {
		status := styleForStatus(r.Status).Render(fmt.Sprintf("%-9s", r.Status))
		line := fmt.Sprintf("  %s %-6s %-36s %-10s", status, r.TaskID, truncate(r.Name, 36), r.Owner)
		if r.DurationSeconds > 0 {
			line += fmt.Sprintf(" %5.0fs", r.DurationSeconds)
		}
		b.WriteString(line)
		b.WriteString("\n")
		if r.Status != models.StatusCompleted && r.Message != "" {
			b.WriteString(fmt.Sprintf("            %s\n", r.Message))
		}
	}

	rep := out.Report
	if rep.Date == "" {
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %-16s %d\n", "Tasks:", rep.Summary.Total))
	b.WriteString(fmt.Sprintf("  %-16s %d\n", "Completed:", rep.Summary.Completed))
	b.WriteString(fmt.Sprintf("  %-16s %d\n", "Failed:", rep.Summary.Failed))
	b.WriteString(fmt.Sprintf("  %-16s %d\n", "Blocked:", rep.Summary.Blocked))
	b.WriteString(fmt.Sprintf("  %-16s %s%%\n", "Success rate:", rep.Summary.SuccessRate))
	b.WriteString(fmt.Sprintf("  %-16s %d%%\n", "Efficiency:", rep.Performance.Efficiency))
	b.WriteString(fmt.Sprintf("  %-16s %d min\n", "Total time:", rep.Performance.TotalTimeMinutes))
	b.WriteString(fmt.Sprintf("  %-16s %ds\n", "Average time:", rep.Performance.AverageTimeSeconds))
	b.WriteString(fmt.Sprintf("  %-16s day %d (week %d), %d task(s)\n", "Next:", rep.NextDay.Day, rep.NextDay.Week, rep.NextDay.Tasks))

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func init() {
	runCmd.Flags().IntVar(&runDay, "day", 0, "Run a specific day of the phase instead of today")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the daily report as JSON instead of the summary")
	rootCmd.AddCommand(runCmd)
}
