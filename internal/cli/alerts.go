package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active alerts and warnings",
	Long: `Show the alerts held in the live snapshot, followed by the alerts derived
from the event log.

History alerts check for repeated failures of a task, tasks stuck in the
blocked state across cycles, and a low success rate over recent cycles.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query service not initialized")
		}

		history, err := Queries.EvaluateAlerts()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}
		live := Queries.Status().Alerts

		w := cmd.OutOrStdout()
		if len(live) == 0 && len(history) == 0 {
			fmt.Fprintln(w, "No active alerts.")
			return nil
		}

		if len(live) > 0 {
			fmt.Fprintf(w, "%d live alert(s):\n\n", len(live))
			for _, a := range live {
				printAlert(w, a)
			}
		}
		if len(history) > 0 {
			if len(live) > 0 {
				fmt.Fprintln(w)
			}
			sortAlerts(history)
			fmt.Fprintf(w, "%d alert(s) from execution history:\n\n", len(history))
			for _, a := range history {
				printAlert(w, a)
			}
		}
		return nil
	},
}

// sortAlerts orders alerts most severe first, keeping the input order within
// a level.
func sortAlerts(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return levelRank(alerts[i].Level) < levelRank(alerts[j].Level)
	})
}

func init() {
	rootCmd.AddCommand(alertsCmd)
}
