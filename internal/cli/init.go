package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/phaseops/internal/core"
	"github.com/valter-silva-au/phaseops/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a phaseops workspace",
	Long: `Initialize a directory with a phaseops configuration file, a copy of the
default plan, a team roster with one member per plan owner, and the reports
directory.

Safe to run on existing workspaces -- files and directories that already
exist are skipped and not overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		basePath := "."
		if len(args) > 0 {
			basePath = args[0]
		}
		absPath, err := filepath.Abs(basePath)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		startFlag, _ := cmd.Flags().GetString("start")
		horizon, _ := cmd.Flags().GetInt("horizon")

		start := time.Now().UTC()
		if Clock != nil {
			start = Clock.Now().UTC()
		}
		if startFlag != "" {
			start, err = time.Parse("2006-01-02", startFlag)
			if err != nil {
				return fmt.Errorf("parsing --start: %w", err)
			}
		}
		if horizon < 1 {
			return fmt.Errorf("--horizon must be at least 1, got %d", horizon)
		}

		result, err := storage.InitWorkspace(absPath, start, horizon)
		if err != nil {
			return fmt.Errorf("initializing workspace: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(result.Created) > 0 {
			fmt.Fprintln(w, "Created:")
			for _, p := range result.Created {
				rel, _ := filepath.Rel(absPath, p)
				fmt.Fprintf(w, "  %s\n", rel)
			}
		}
		if len(result.Skipped) > 0 {
			fmt.Fprintln(w, "Skipped (already exist):")
			for _, p := range result.Skipped {
				rel, _ := filepath.Rel(absPath, p)
				fmt.Fprintf(w, "  %s\n", rel)
			}
		}

		fmt.Fprintf(w, "\nWorkspace initialized at %s (phase starts %s)\n", absPath, start.Format("2006-01-02"))
		return nil
	},
}

func init() {
	initCmd.Flags().String("start", "", "Phase start date as YYYY-MM-DD (defaults to today)")
	initCmd.Flags().Int("horizon", core.DefaultHorizon, "Number of days in the phase")
	rootCmd.AddCommand(initCmd)
}
