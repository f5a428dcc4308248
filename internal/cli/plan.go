package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/phaseops/internal/query"
)

var (
	todayDay  int
	todayJSON bool
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show the tasks scheduled for today without running them",
	Long: `Show the day's task selection in execution order, with owners, estimates
and dependencies. Nothing is executed or persisted.

Use --day to inspect another day of the phase.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query service not initialized")
		}

		plan := Queries.DayPlan(todayDay)

		if todayJSON {
			return printJSON(cmd.OutOrStdout(), plan)
		}
		printDayPlan(cmd.OutOrStdout(), plan)
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the whole phase plan",
	Long:  `Show every week of the plan with its tasks, owners, scheduled days and dependencies.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Plan == nil {
			return fmt.Errorf("plan not loaded")
		}

		w := cmd.OutOrStdout()
		weeks := Plan.Weeks()
		if len(weeks) == 0 {
			fmt.Fprintln(w, "The plan is empty.")
			return nil
		}

		fmt.Fprintf(w, "%d task(s) over %d days\n", Plan.Total(), Plan.Horizon())
		for i, week := range weeks {
			fmt.Fprintf(w, "\nWeek %d: %s\n", i+1, week.Name)
			for _, t := range week.Tasks {
				fmt.Fprintf(w, "  %-6s %-36s %-10s %4.1fh  days %s\n",
					t.ID, truncate(t.Name, 36), t.Owner, t.Hours, joinInts(t.Days))
				if len(t.Deps) > 0 {
					fmt.Fprintf(w, "         after %s\n", strings.Join(t.Deps, ", "))
				}
			}
		}
		return nil
	},
}

func printDayPlan(w io.Writer, plan query.DayPlan) {
	fmt.Fprintf(w, "Day %d (week %d) on %s\n\n", plan.Day, plan.Week, plan.Date)
	if len(plan.Tasks) == 0 {
		fmt.Fprintln(w, "  No tasks scheduled.")
		return
	}
	for i, t := range plan.Tasks {
		fmt.Fprintf(w, "  %d. %-8s %-36s %-10s %4.1fh\n", i+1, t.DisplayID, truncate(t.Name, 36), t.Owner, t.Hours)
		if len(t.Deps) > 0 {
			fmt.Fprintf(w, "     depends on %s\n", strings.Join(t.Deps, ", "))
		}
	}
	fmt.Fprintf(w, "\n%d task(s)\n", len(plan.Tasks))
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func init() {
	todayCmd.Flags().IntVar(&todayDay, "day", 0, "Day of the phase to show (0 for today)")
	todayCmd.Flags().BoolVar(&todayJSON, "json", false, "Output the selection as JSON")
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(planCmd)
}
