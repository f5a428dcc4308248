package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

var statusJSON bool

// maxStatusAlerts bounds the alerts listed by the status command.
const maxStatusAlerts = 5

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display phase progress, task counters and health",
	Long: `Display the current status snapshot: the day of the phase and progress,
task counters, health state and the most recent alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query service not initialized")
		}

		status := Queries.Status()
		if statusJSON {
			return printJSON(cmd.OutOrStdout(), status)
		}
		printStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Show team members and their tasks for today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query service not initialized")
		}

		w := cmd.OutOrStdout()
		members := Queries.Team()
		if len(members) == 0 {
			fmt.Fprintln(w, "No team members configured.")
			return nil
		}
		for _, m := range members {
			tasks := "-"
			if len(m.TasksToday) > 0 {
				tasks = strings.Join(m.TasksToday, ", ")
			}
			fmt.Fprintf(w, "  %-10s %-20s %-7s %s\n", m.Name, truncate(m.Role, 20), m.State, tasks)
		}
		return nil
	},
}

func printStatus(w io.Writer, s models.SystemStatus) {
	horizon := s.Phase.CurrentDay + s.Phase.DaysRemaining
	fmt.Fprintf(w, "Phase:   day %d of %d (%d%%, %d day(s) remaining)\n",
		s.Phase.CurrentDay, horizon, s.Phase.Percent, s.Phase.DaysRemaining)
	fmt.Fprintf(w, "Tasks:   %d/%d completed, %d failed, %d blocked\n",
		s.Tasks.Completed, s.Tasks.Total, s.Tasks.Failed, s.Tasks.Blocked)
	fmt.Fprintf(w, "Health:  %s\n", styleForHealth(s.Health).Render(string(s.Health)))

	if len(s.Alerts) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRecent alerts:")
	for i, a := range s.Alerts {
		if i == maxStatusAlerts {
			fmt.Fprintf(w, "  ... and %d more\n", len(s.Alerts)-maxStatusAlerts)
			break
		}
		printAlert(w, a)
	}
}

func printAlert(w io.Writer, a models.Alert) {
	level := styleForLevel(string(a.Level)).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(a.Level))))
	fmt.Fprintf(w, "  %s %s\n", level, a.Message)
	if !a.Timestamp.IsZero() {
		fmt.Fprintf(w, "         %s at %s\n", a.Component, a.Timestamp.UTC().Format("2006-01-02 15:04 UTC"))
	}
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(teamCmd)
}
