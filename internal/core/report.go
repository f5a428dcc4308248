package core

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// ErrReportPersist marks a failure to persist the daily report. It is the
// only per-cycle error that aborts a run.
var ErrReportPersist = errors.New("persisting daily report")

// ReportStore persists daily reports keyed by calendar date. Saving a report
// for a date that already has one overwrites it.
type ReportStore interface {
	Save(report models.DailyReport) error
	Get(date string) (*models.DailyReport, error)
	List() ([]string, error)
	Latest() (*models.DailyReport, error)
}

// NotificationSink receives per-task, per-day and alert messages.
type NotificationSink interface {
	NotifyTask(n models.TaskNotification) error
	NotifyDay(n models.DayNotification) error
	NotifyAlerts(alerts []models.Alert) error
}

// ReportAggregator turns the results of a cycle into a persisted report.
type ReportAggregator struct {
	plan            *PlanRepository
	store           ReportStore
	sink            NotificationSink
	expectedSeconds float64
	logger          *slog.Logger
}

// NewReportAggregator creates a ReportAggregator. expectedSeconds is the
// per-task time budget used for the efficiency score.
func NewReportAggregator(plan *PlanRepository, store ReportStore, sink NotificationSink, expectedSeconds float64, logger *slog.Logger) *ReportAggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ReportAggregator{
		plan:            plan,
		store:           store,
		sink:            sink,
		expectedSeconds: expectedSeconds,
		logger:          logger,
	}
}

// SuccessRate formats completed/total as a percentage with one decimal, or
// "0" when there are no results.
func SuccessRate(completed, total int) string {
	if total == 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(completed)/float64(total)*100, 'f', 1, 64)
}

// Efficiency blends completion rate (70%) and time efficiency (30%) into a
// score within [0, 100]. Time efficiency is expected/average capped at 1.
func Efficiency(completed, total int, averageSeconds, expectedSeconds float64) int {
	if total == 0 {
		return 0
	}
	completion := float64(completed) / float64(total)
	timeEff := 1.0
	if averageSeconds > 0 {
		timeEff = math.Min(expectedSeconds/averageSeconds, 1)
	}
	score := int(math.Round((completion*0.7 + timeEff*0.3) * 100))
	return max(0, min(score, 100))
}

// Build computes the daily report for results without side effects.
func (a *ReportAggregator) Build(date time.Time, day int, results []models.TaskResult) models.DailyReport {
	horizon := a.plan.Horizon()
	day = ClampDay(day, horizon)

	var sum models.ReportSummary
	var totalSeconds float64
	for _, r := range results {
		switch r.Status {
		case models.StatusCompleted:
			sum.Completed++
		case models.StatusFailed:
			sum.Failed++
		default:
			sum.Blocked++
		}
		totalSeconds += r.DurationSeconds
	}
	sum.Total = len(results)
	sum.SuccessRate = SuccessRate(sum.Completed, sum.Total)

	var avg float64
	if sum.Total > 0 {
		avg = totalSeconds / float64(sum.Total)
	}

	next := ClampDay(day+1, horizon)
	return models.DailyReport{
		Date:    DateKey(date),
		Day:     day,
		Week:    WeekForDay(day),
		Summary: sum,
		Performance: models.ReportPerformance{
			TotalTimeMinutes:   int(math.Round(totalSeconds / 60)),
			AverageTimeSeconds: int(math.Round(avg)),
			Efficiency:         Efficiency(sum.Completed, sum.Total, avg, a.expectedSeconds),
		},
		NextDay: models.NextDayPreview{
			Day:   next,
			Week:  WeekForDay(next),
			Tasks: a.plan.CountForDay(next),
		},
	}
}

// Publish builds the report, persists it and hands it to the notification
// sink. A persistence failure is returned wrapped in ErrReportPersist;
// notification failures are logged only.
func (a *ReportAggregator) Publish(date time.Time, day int, results []models.TaskResult) (models.DailyReport, error) {
	report := a.Build(date, day, results)

	if err := a.store.Save(report); err != nil {
		return report, fmt.Errorf("%w for %s: %w", ErrReportPersist, report.Date, err)
	}
	a.logger.Info("daily report saved", "date", report.Date, "day", report.Day, "success_rate", report.Summary.SuccessRate)

	if a.sink == nil {
		return report, nil
	}

	_, percent := Progress(report.Day, a.plan.Horizon())
	dayMsg := models.DayNotification{
		Date:              report.Date,
		Day:               report.Day,
		ProgressPercent:   percent,
		TasksToday:        report.Summary.Total,
		SuccessRate:       report.Summary.SuccessRate,
		Efficiency:        report.Performance.Efficiency,
		TotalTimeMinutes:  report.Performance.TotalTimeMinutes,
		TomorrowTaskCount: report.NextDay.Tasks,
	}
	if err := a.sink.NotifyDay(dayMsg); err != nil {
		a.logger.Warn("day notification failed", "date", report.Date, "error", err)
	}

	if report.Summary.Failed+report.Summary.Blocked > 0 {
		if err := a.sink.NotifyAlerts(ResultAlerts(results, date)); err != nil {
			a.logger.Warn("alert notification failed", "date", report.Date, "error", err)
		}
	}

	return report, nil
}

// ResultAlerts derives one alert per failed or blocked result. Every alert
// gets a fresh id, so a task failing on several days yields distinct alerts.
func ResultAlerts(results []models.TaskResult, at time.Time) []models.Alert {
	var alerts []models.Alert
	for _, r := range results {
		switch r.Status {
		case models.StatusFailed:
			alerts = append(alerts, models.Alert{
				ID:        uuid.NewString(),
				Level:     models.AlertError,
				Message:   fmt.Sprintf("task %s (%s) failed: %s", r.TaskID, r.Owner, r.Message),
				Component: "orchestrator",
				Timestamp: at,
			})
		case models.StatusBlocked:
			alerts = append(alerts, models.Alert{
				ID:        uuid.NewString(),
				Level:     models.AlertWarning,
				Message:   fmt.Sprintf("task %s (%s) blocked: %s", r.TaskID, r.Owner, r.Message),
				Component: "dependency-gate",
				Timestamp: at,
			})
		}
	}
	return alerts
}
