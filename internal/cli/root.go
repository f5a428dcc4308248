package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "phaseops",
	Short: "phaseops - fixed-horizon phase orchestrator",
	Long: `phaseops runs a multi-week delivery plan one day at a time.

Each daily cycle maps the wall clock onto a day of the phase, selects the
tasks scheduled for that day, gates them on their dependencies, simulates
their execution, persists a daily report and notifies the team. The serve
command broadcasts the live status to dashboards and exposes a read-only
query API.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "phaseops %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
