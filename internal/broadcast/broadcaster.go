// Package broadcast maintains the live system status snapshot and pushes it
// to connected observers. The Broadcaster is the only writer of the snapshot
// and the alert history.
package broadcast

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/valter-silva-au/phaseops/internal/core"
	"github.com/valter-silva-au/phaseops/internal/observability"
	"github.com/valter-silva-au/phaseops/internal/schedule"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Job names registered by Register.
const (
	JobUpdate   = "update"
	JobHealth   = "health"
	JobProgress = "progress"
)

// Observer is a connected listener of status messages.
type Observer interface {
	ID() string
	Send(msg models.ObserverMessage) error
	Close() error
}

// Options collects the collaborators of a Broadcaster. Plan is required.
type Options struct {
	Plan     *core.PlanRepository
	Calendar core.Calendar
	Team     models.Team
	// Reports supplies the latest daily report for the metrics section.
	Reports core.ReportStore
	Source  core.OutcomeSource
	Clock   clockwork.Clock
	// MaxAlerts bounds the alert history.
	MaxAlerts int
	// Completed seeds the completed-task counter when CompletedIDs is empty.
	Completed int
	// CompletedIDs seeds the completed-task counter with known task ids, e.g.
	// from the ledger. A later completion of one of them is not counted again.
	CompletedIDs []string
	Collectors   *observability.Collectors
	Logger       *slog.Logger
}

// Broadcaster owns the System Status Snapshot, the alert history and the
// observer set. All state is guarded by mu.
type Broadcaster struct {
	opts Options

	sendMu sync.Mutex // serializes deliveries to observers

	mu        sync.Mutex
	status    models.SystemStatus
	metrics   models.LiveMetrics
	history   *observability.AlertHistory
	observers map[string]Observer
	order     []string

	// Per-task outcome last counted, keyed by task id.
	outcomes map[string]models.ExecutionStatus
}

// New creates a Broadcaster with a healthy initial snapshot.
func New(opts Options) (*Broadcaster, error) {
	if opts.Plan == nil {
		return nil, errors.New("broadcaster requires a plan repository")
	}
	if opts.Source == nil {
		opts.Source = core.NewRandomSource()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.MaxAlerts < 1 {
		opts.MaxAlerts = 50
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Calendar.Horizon() == 0 {
		opts.Calendar = core.NewCalendar(opts.Clock.Now(), opts.Plan.Horizon())
	}

	b := &Broadcaster{
		opts:      opts,
		history:   observability.NewAlertHistory(opts.MaxAlerts),
		observers: make(map[string]Observer),
		metrics:   models.LiveMetrics{SuccessRate: "0"},
		outcomes:  make(map[string]models.ExecutionStatus),
	}
	completed := opts.Completed
	if len(opts.CompletedIDs) > 0 {
		for _, id := range opts.CompletedIDs {
			b.outcomes[id] = models.StatusCompleted
		}
		completed = len(b.outcomes)
	}
	total := opts.Plan.Total()
	b.status = models.SystemStatus{
		Tasks:     models.TaskCounters{Total: total, Completed: min(completed, total)},
		Health:    models.HealthHealthy,
		UpdatedAt: opts.Clock.Now(),
	}
	b.refreshPhaseLocked(opts.Clock.Now())
	return b, nil
}

// Register adds the update, health and progress jobs to s. Jobs that fell
// behind, e.g. after a suspend, run once rather than once per missed period.
func (b *Broadcaster) Register(s *schedule.Scheduler, cfg models.BroadcastConfig) error {
	jobs := []struct {
		name   string
		period time.Duration
		fn     schedule.JobFunc
	}{
		{JobUpdate, cfg.UpdateInterval, func(now time.Time) { b.BroadcastUpdate(now) }},
		{JobHealth, cfg.HealthInterval, b.PerturbHealth},
		{JobProgress, cfg.ProgressInterval, b.SimulateProgress},
	}
	for _, j := range jobs {
		if err := s.Every(j.name, j.period, j.fn, schedule.Coalesce()); err != nil {
			return fmt.Errorf("registering broadcast job: %w", err)
		}
	}
	return nil
}

// Snapshot returns a copy of the current status, alerts included. The phase
// section reflects the clock at the time of the call.
func (b *Broadcaster) Snapshot() models.SystemStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshPhaseLocked(b.opts.Clock.Now())
	return b.snapshotLocked()
}

func (b *Broadcaster) snapshotLocked() models.SystemStatus {
	s := b.status
	s.Alerts = b.history.List()
	return s
}

// Health returns the current health state.
func (b *Broadcaster) Health() models.Health {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status.Health
}

// Alerts returns the alert history, newest first.
func (b *Broadcaster) Alerts() []models.Alert {
	return b.history.List()
}

// AddAlerts prepends alerts to the bounded history.
func (b *Broadcaster) AddAlerts(alerts ...models.Alert) {
	if len(alerts) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addAlertsLocked(alerts...)
}

func (b *Broadcaster) addAlertsLocked(alerts ...models.Alert) {
	b.history.Push(alerts...)
	if c := b.opts.Collectors; c != nil {
		c.SetAlerts(b.history.Len())
	}
}

// Metrics returns the metrics section, refreshed from the latest report.
func (b *Broadcaster) Metrics() models.LiveMetrics {
	b.refreshMetrics()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

// Team returns the team state for the current day.
func (b *Broadcaster) Team() []models.TeamMemberState {
	b.mu.Lock()
	b.refreshPhaseLocked(b.opts.Clock.Now())
	day := b.status.Phase.CurrentDay
	b.mu.Unlock()
	return core.TeamState(b.opts.Team, b.opts.Plan, day)
}

// Update returns the merged payload of a periodic update.
func (b *Broadcaster) Update(now time.Time) models.UpdatePayload {
	b.refreshMetrics()

	b.mu.Lock()
	b.refreshPhaseLocked(now)
	payload := models.UpdatePayload{
		Status:  b.snapshotLocked(),
		Metrics: b.metrics,
	}
	day := b.status.Phase.CurrentDay
	b.mu.Unlock()

	payload.Team = core.TeamState(b.opts.Team, b.opts.Plan, day)
	return payload
}

// refreshMetrics loads the latest daily report outside the lock.
func (b *Broadcaster) refreshMetrics() {
	if b.opts.Reports == nil {
		return
	}
	latest, err := b.opts.Reports.Latest()
	if err != nil {
		b.opts.Logger.Warn("loading latest report", "error", err)
		return
	}
	if latest == nil {
		return
	}
	b.mu.Lock()
	b.metrics = metricsFromReport(*latest)
	b.mu.Unlock()
}

func metricsFromReport(r models.DailyReport) models.LiveMetrics {
	return models.LiveMetrics{
		LastReportDate:     r.Date,
		TasksToday:         r.Summary.Total,
		SuccessRate:        r.Summary.SuccessRate,
		Efficiency:         r.Performance.Efficiency,
		TotalTimeMinutes:   r.Performance.TotalTimeMinutes,
		AverageTimeSeconds: r.Performance.AverageTimeSeconds,
	}
}

func (b *Broadcaster) refreshPhaseLocked(now time.Time) {
	day := b.opts.Calendar.DayIndex(now)
	remaining, percent := b.opts.Calendar.Progress(day)
	b.status.Phase = models.PhaseProgress{CurrentDay: day, DaysRemaining: remaining, Percent: percent}
	if c := b.opts.Collectors; c != nil {
		c.PhaseDay.Set(float64(day))
	}
}
