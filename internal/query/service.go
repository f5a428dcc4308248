// Package query is the read-only query surface shared by the HTTP server,
// the MCP server and the CLI. Nothing in it mutates state.
package query

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/phaseops/internal/core"
	"github.com/valter-silva-au/phaseops/internal/observability"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// LiveState is the read side of the status broadcaster.
type LiveState interface {
	Snapshot() models.SystemStatus
	Metrics() models.LiveMetrics
	Team() []models.TeamMemberState
	Health() models.Health
}

// HealthReport summarizes the health of the running system.
type HealthReport struct {
	Status    models.Health `json:"status"`
	Day       int           `json:"day"`
	Errors    int           `json:"errors"`
	Warnings  int           `json:"warnings"`
	Timestamp time.Time     `json:"timestamp"`
}

// DayPlan is the selection of one day of the phase.
type DayPlan struct {
	Day   int                    `json:"day"`
	Week  int                    `json:"week"`
	Date  string                 `json:"date"`
	Tasks []models.ScheduledTask `json:"tasks"`
}

// MetricsView merges the live metrics with history from the event log.
type MetricsView struct {
	Live    models.LiveMetrics     `json:"live"`
	History *observability.Metrics `json:"history,omitempty"`
}

// Options collects the sources of a Service. Plan and Live are required;
// History and Alerts may be nil when the event log is unavailable.
type Options struct {
	Plan     *core.PlanRepository
	Calendar core.Calendar
	Reports  core.ReportStore
	Live     LiveState
	History  observability.MetricsCalculator
	Alerts   observability.AlertEngine
	Now      func() time.Time
}

// Service answers read-only queries.
type Service struct {
	opts Options
}

// NewService creates a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Plan == nil {
		return nil, fmt.Errorf("query service requires a plan repository")
	}
	if opts.Live == nil {
		return nil, fmt.Errorf("query service requires a live state")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Calendar.Horizon() == 0 {
		opts.Calendar = core.NewCalendar(opts.Now(), opts.Plan.Horizon())
	}
	return &Service{opts: opts}, nil
}

// Status returns the live status snapshot.
func (s *Service) Status() models.SystemStatus {
	return s.opts.Live.Snapshot()
}

// Metrics returns the live metrics and, when since is non-zero and an event
// log is available, the history since that time.
func (s *Service) Metrics(since time.Time) (MetricsView, error) {
	view := MetricsView{Live: s.opts.Live.Metrics()}
	if since.IsZero() || s.opts.History == nil {
		return view, nil
	}
	history, err := s.opts.History.Calculate(since)
	if err != nil {
		return view, fmt.Errorf("calculating metrics history: %w", err)
	}
	view.History = history
	return view, nil
}

// Reports returns the dates of all persisted daily reports, oldest first.
func (s *Service) Reports() ([]string, error) {
	if s.opts.Reports == nil {
		return []string{}, nil
	}
	dates, err := s.opts.Reports.List()
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return dates, nil
}

// Report returns the daily report persisted for date (YYYY-MM-DD).
func (s *Service) Report(date string) (*models.DailyReport, error) {
	if s.opts.Reports == nil {
		return nil, fmt.Errorf("no report store configured")
	}
	return s.opts.Reports.Get(date)
}

// Team returns each team member with today's tasks.
func (s *Service) Team() []models.TeamMemberState {
	return s.opts.Live.Team()
}

// Health summarizes the health state and the retained alerts.
func (s *Service) Health() HealthReport {
	snap := s.opts.Live.Snapshot()
	report := HealthReport{
		Status:    s.opts.Live.Health(),
		Day:       snap.Phase.CurrentDay,
		Timestamp: s.opts.Now().UTC(),
	}
	for _, a := range snap.Alerts {
		switch a.Level {
		case models.AlertError:
			report.Errors++
		case models.AlertWarning:
			report.Warnings++
		}
	}
	return report
}

// Today returns today's day index.
func (s *Service) Today() int {
	return s.opts.Calendar.DayIndex(s.opts.Now())
}

// DayPlan returns the tasks scheduled on day. A day below 1 selects today;
// other days are clamped to the horizon.
func (s *Service) DayPlan(day int) DayPlan {
	if day < 1 {
		day = s.Today()
	}
	day = core.ClampDay(day, s.opts.Plan.Horizon())
	tasks := s.opts.Plan.TasksForDay(day)
	if tasks == nil {
		tasks = []models.ScheduledTask{}
	}
	return DayPlan{
		Day:   day,
		Week:  core.WeekForDay(day),
		Date:  core.DateKey(s.opts.Calendar.Start().AddDate(0, 0, day-1)),
		Tasks: tasks,
	}
}

// EvaluateAlerts returns the historical alerts derived from the event log.
func (s *Service) EvaluateAlerts() ([]models.Alert, error) {
	if s.opts.Alerts == nil {
		return []models.Alert{}, nil
	}
	alerts, err := s.opts.Alerts.Evaluate()
	if err != nil {
		return nil, fmt.Errorf("evaluating alerts: %w", err)
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts, nil
}
