package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/phaseops/internal/schedule"
	"github.com/valter-silva-au/phaseops/internal/server"
)

var (
	serveAddr  string
	serveCycle bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live status channel and the query API",
	Long: `Start the status broadcaster and the HTTP server.

Observers connect to /ws and receive the current snapshot immediately, then a
merged status, metrics and team update on every broadcast interval. The
read-only query API is served under /api and Prometheus metrics under
/metrics.

With --cycle, today's daily cycle runs once in the background after startup
and its progress is pushed to connected observers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil || Broadcaster == nil {
			return fmt.Errorf("broadcaster not initialized")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched := schedule.New(Clock, Logger)
		if err := Broadcaster.Register(sched, Config.Broadcast); err != nil {
			return fmt.Errorf("registering broadcast jobs: %w", err)
		}

		addr := serveAddr
		if addr == "" {
			addr = Config.ServerAddr
		}
		srv := server.NewServer(Queries, Broadcaster, Registry, server.Config{Address: addr}, Logger)

		go func() {
			if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger().Error("scheduler stopped", "error", err)
			}
		}()

		if serveCycle {
			if Orchestrator == nil {
				return fmt.Errorf("orchestrator not initialized")
			}
			go func() {
				out, err := Orchestrator.RunCycle(ctx)
				if err != nil {
					logger().Error("daily cycle failed", "day", out.Day, "error", err)
					return
				}
				logger().Info("daily cycle finished", "day", out.Day, "success_rate", out.Report.Summary.SuccessRate)
			}()
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("running http server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger().Info("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to server.addr from the configuration)")
	serveCmd.Flags().BoolVar(&serveCycle, "cycle", false, "Run today's daily cycle once after startup")
	rootCmd.AddCommand(serveCmd)
}
