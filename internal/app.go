// Package internal provides the App struct that wires all components of
// phaseops together and initializes the CLI layer.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/valter-silva-au/phaseops/internal/broadcast"
	"github.com/valter-silva-au/phaseops/internal/cli"
	"github.com/valter-silva-au/phaseops/internal/core"
	"github.com/valter-silva-au/phaseops/internal/observability"
	"github.com/valter-silva-au/phaseops/internal/query"
	"github.com/valter-silva-au/phaseops/internal/storage"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Files kept in the base directory next to the configuration.
const (
	EventLogFile = ".phaseops_events.jsonl"
	LedgerFile   = "ledger.json"
)

// App holds all service dependencies of phaseops.
type App struct {
	BasePath string
	Config   models.Config
	Logger   *slog.Logger
	Clock    clockwork.Clock

	// Inputs
	Plan     *core.PlanRepository
	Team     models.Team
	Calendar core.Calendar

	// Storage layer
	Reports storage.ReportStore
	Ledger  storage.Ledger

	// Core services
	Gate         *core.DependencyGate
	Simulator    *core.Simulator
	Aggregator   *core.ReportAggregator
	Orchestrator *core.Orchestrator

	// Live status and queries
	Broadcaster *broadcast.Broadcaster
	Queries     *query.Service

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
	Registry    *prometheus.Registry
	Collectors  *observability.Collectors
	Tracing     *sdktrace.TracerProvider
}

// NewApp creates and wires all components of phaseops. basePath is the
// directory holding .phaseops.yaml and the persisted state. A missing
// configuration, plan or team is not an error, and an unreadable ledger is
// replaced by an empty in-memory one. An invalid configuration is an error.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	cfgMgr := core.NewConfigurationManager(basePath)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfgMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg
	app.Logger = observability.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	app.Clock = clockwork.NewRealClock()

	// --- Inputs ---
	app.Plan = app.loadPlan()
	app.Team = app.loadTeam()
	app.Calendar = core.NewCalendar(cfg.Phase.StartDate, cfg.Phase.HorizonDays)

	// --- Storage ---
	app.Reports = storage.NewReportStore(app.resolve(cfg.ReportsDir))
	ledgerPath := filepath.Join(basePath, LedgerFile)
	app.Ledger, err = storage.NewLedger(ledgerPath)
	if err != nil {
		// The unreadable file is left untouched for inspection.
		app.Logger.Warn("completion ledger unreadable, continuing with an empty in-memory ledger",
			"path", ledgerPath, "error", err)
		app.Ledger = storage.NewMemoryLedger()
	}

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFile))
	if err != nil {
		app.Logger.Warn("event log unavailable, history disabled", "error", err)
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, observability.DefaultAlertThresholds())
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	app.Registry, app.Collectors = observability.NewRegistry()
	app.Tracing = observability.NewTracerProvider(app.Logger)

	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL)
	} else {
		app.Notifier = observability.NewLogNotifier(app.Logger)
	}

	// --- Live status ---
	app.Broadcaster, err = broadcast.New(broadcast.Options{
		Plan:         app.Plan,
		Calendar:     app.Calendar,
		Team:         app.Team,
		Reports:      app.Reports,
		Clock:        app.Clock,
		MaxAlerts:    cfg.Broadcast.MaxAlerts,
		CompletedIDs: completedIDs(app.Ledger),
		Collectors:   app.Collectors,
		Logger:       app.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating broadcaster: %w", err)
	}

	// The broadcaster receives every notification so a cycle run in the same
	// process updates the live snapshot.
	sink := observability.NewMultiNotifier(app.Notifier, app.Broadcaster)

	// --- Core services ---
	var oracle core.DependencyOracle
	switch cfg.Dependencies.Mode {
	case models.DependencyModeSimulated:
		oracle = core.NewSimulatedOracle(core.NewRandomSource(), cfg.Dependencies.PassRate)
	default:
		oracle = core.NewLedgerOracle(app.Ledger)
	}
	app.Gate = core.NewDependencyGate(oracle)
	app.Simulator = core.NewSimulator(core.NewRandomSource(), app.Clock,
		cfg.Orchestrator.FailureRate, cfg.Orchestrator.TimeScale)
	app.Aggregator = core.NewReportAggregator(app.Plan, app.Reports, sink,
		cfg.Orchestrator.ExpectedTaskSeconds, app.Logger)

	orchOpts := core.OrchestratorOptions{
		Plan:       app.Plan,
		Calendar:   app.Calendar,
		Gate:       app.Gate,
		Simulator:  app.Simulator,
		Aggregator: app.Aggregator,
		Clock:      app.Clock,
		Pause:      TaskPause(cfg.Orchestrator),
		Ledger:     app.Ledger,
		Sink:       sink,
		Recorder:   app.Collectors,
		Logger:     app.Logger,
		Tracer:     observability.Tracer(app.Tracing),
	}
	// Assigning a nil EventLog would leave a non-nil interface holding nil.
	if app.EventLog != nil {
		orchOpts.Events = app.EventLog
	}
	app.Orchestrator, err = core.NewOrchestrator(orchOpts)
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	queryOpts := query.Options{
		Plan:     app.Plan,
		Calendar: app.Calendar,
		Reports:  app.Reports,
		Live:     app.Broadcaster,
		Now:      app.Clock.Now,
	}
	if app.MetricsCalc != nil {
		queryOpts.History = app.MetricsCalc
		queryOpts.Alerts = app.AlertEngine
	}
	app.Queries, err = query.NewService(queryOpts)
	if err != nil {
		return nil, fmt.Errorf("creating query service: %w", err)
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Logger = app.Logger
	cli.Clock = app.Clock
	cli.Plan = app.Plan
	cli.Orchestrator = app.Orchestrator
	cli.Queries = app.Queries
	cli.Broadcaster = app.Broadcaster
	cli.Registry = app.Registry

	return app, nil
}

// TaskPause returns the pause between tasks scaled by the time scale, so a
// time scale of zero also disables the pause.
func TaskPause(o models.OrchestratorConfig) time.Duration {
	return time.Duration(float64(o.TaskPause) * o.TimeScale)
}

func completedIDs(l storage.Ledger) []string {
	entries := l.Entries()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.TaskID
	}
	return ids
}

// loadPlan loads the configured plan. An unreadable or invalid plan is logged
// and replaced by an empty one so that read-only commands keep working.
func (a *App) loadPlan() *core.PlanRepository {
	horizon := a.Config.Phase.HorizonDays
	path := a.resolve(a.Config.PlanFile)

	plan, usedDefault, err := storage.LoadPlan(path)
	if err != nil {
		a.Logger.Warn("plan unavailable, continuing with an empty plan", "path", path, "error", err)
		return core.EmptyPlanRepository(horizon)
	}
	if usedDefault {
		a.Logger.Debug("plan file not found, using the built-in plan", "path", path)
	}

	repo, err := core.NewPlanRepository(plan, horizon)
	if err != nil {
		a.Logger.Warn("plan rejected, continuing with an empty plan", "path", path, "error", err)
		return core.EmptyPlanRepository(horizon)
	}
	return repo
}

// loadTeam loads the team roster. A missing roster yields an empty team.
func (a *App) loadTeam() models.Team {
	path := a.resolve(a.Config.TeamFile)
	team, err := storage.LoadTeam(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			a.Logger.Debug("team file not found", "path", path)
		} else {
			a.Logger.Warn("team unavailable, continuing without members", "path", path, "error", err)
		}
		return models.Team{}
	}
	return team
}

// resolve makes a configured path absolute against the base directory.
func (a *App) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.BasePath, p)
}

// Close releases resources held by the App.
func (a *App) Close() error {
	var errs []error
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing event log: %w", err))
		}
	}
	if a.Tracing != nil {
		if err := a.Tracing.Shutdown(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ResolveBasePath determines the phaseops base directory. It checks the
// PHASEOPS_HOME environment variable first, then walks up from the current
// directory looking for .phaseops.yaml, and falls back to the current
// directory.
func ResolveBasePath() string {
	if home := os.Getenv("PHASEOPS_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, storage.ConfigFile)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
