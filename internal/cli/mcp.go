package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	phaseopsmcp "github.com/valter-silva-au/phaseops/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the phaseops MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the phaseops MCP server on stdio",
	Long: `Start the phaseops MCP server on stdio transport.

The server exposes the read-only query surface as MCP tools that AI
assistants can call: get_status, get_metrics, list_reports, get_report,
get_team, get_health, get_day_plan, get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query service not initialized")
		}

		srv := phaseopsmcp.NewServer(Queries, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
