package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/phaseops/pkg/models"
)

func result(id string, status models.ExecutionStatus, seconds float64) models.TaskResult {
	return models.TaskResult{TaskID: id, Name: "task " + id, Owner: "alice", Status: status, DurationSeconds: seconds}
}

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		completed, total int
		want             string
	}{
		{0, 0, "0"},
		{3, 4, "75.0"},
		{3, 3, "100.0"},
		{2, 3, "66.7"},
		{0, 5, "0.0"},
	}
	for _, tt := range tests {
		if got := SuccessRate(tt.completed, tt.total); got != tt.want {
			t.Errorf("SuccessRate(%d, %d) = %q, want %q", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestEfficiency(t *testing.T) {
	tests := []struct {
		name             string
		completed, total int
		avg, expected    float64
		want             int
	}{
		{"no results", 0, 0, 0, 300, 0},
		{"all completed under budget", 4, 4, 120, 300, 100},
		{"half completed at double budget", 2, 4, 600, 300, 50},
		{"all blocked", 0, 3, 0, 300, 30},
		{"four of five fast", 4, 5, 5, 300, 86},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Efficiency(tt.completed, tt.total, tt.avg, tt.expected); got != tt.want {
				t.Errorf("Efficiency = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuild_ComputesReport(t *testing.T) {
	repo := mustRepo(t, fixturePlan())
	agg := NewReportAggregator(repo, newMemReportStore(), nil, 300, nil)
	date := time.Date(2025, time.January, 6, 18, 0, 0, 0, time.UTC)

	results := []models.TaskResult{
		result("1.1", models.StatusCompleted, 90),
		result("1.2", models.StatusCompleted, 150),
		result("1.3", models.StatusFailed, 60),
		result("1.4", models.StatusBlocked, 0),
	}
	r := agg.Build(date, 1, results)

	if r.Date != "2025-01-06" || r.Day != 1 || r.Week != 1 {
		t.Errorf("date/day/week = %s/%d/%d", r.Date, r.Day, r.Week)
	}
	want := models.ReportSummary{Total: 4, Completed: 2, Failed: 1, Blocked: 1, SuccessRate: "50.0"}
	if r.Summary != want {
		t.Errorf("summary = %+v, want %+v", r.Summary, want)
	}
	if r.Performance.TotalTimeMinutes != 5 {
		t.Errorf("totalTime = %d, want 5", r.Performance.TotalTimeMinutes)
	}
	if r.Performance.AverageTimeSeconds != 75 {
		t.Errorf("averageTime = %d, want 75", r.Performance.AverageTimeSeconds)
	}
	if r.Performance.Efficiency != 65 {
		t.Errorf("efficiency = %d, want 65", r.Performance.Efficiency)
	}
	if r.NextDay != (models.NextDayPreview{Day: 2, Week: 1, Tasks: 2}) {
		t.Errorf("nextDay = %+v", r.NextDay)
	}
}

func TestBuild_Empty(t *testing.T) {
	agg := NewReportAggregator(mustRepo(t, fixturePlan()), newMemReportStore(), nil, 300, nil)
	r := agg.Build(time.Now(), 5, nil)

	if r.Summary.Total != 0 || r.Summary.SuccessRate != "0" {
		t.Errorf("summary = %+v", r.Summary)
	}
	if r.Performance != (models.ReportPerformance{}) {
		t.Errorf("performance = %+v, want zero", r.Performance)
	}
}

func TestBuild_NextDayClampedAtHorizon(t *testing.T) {
	agg := NewReportAggregator(mustRepo(t, fixturePlan()), newMemReportStore(), nil, 300, nil)
	r := agg.Build(time.Now(), 18, nil)

	if r.NextDay != (models.NextDayPreview{Day: 18, Week: 3, Tasks: 1}) {
		t.Errorf("nextDay = %+v", r.NextDay)
	}
}

func TestPublish_PersistsAndNotifies(t *testing.T) {
	store := newMemReportStore()
	sink := &recordingSink{}
	agg := NewReportAggregator(mustRepo(t, fixturePlan()), store, sink, 300, nil)
	date := time.Date(2025, time.January, 7, 9, 0, 0, 0, time.UTC)

	report, err := agg.Publish(date, 2, []models.TaskResult{
		result("1.4", models.StatusCompleted, 30),
		result("1.5", models.StatusBlocked, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get("2025-01-07"); err != nil {
		t.Fatalf("report not persisted: %v", err)
	}
	if len(sink.days) != 1 {
		t.Fatalf("expected 1 day notification, got %d", len(sink.days))
	}
	day := sink.days[0]
	if day.TasksToday != 2 || day.SuccessRate != report.Summary.SuccessRate || day.ProgressPercent != 11 {
		t.Errorf("day notification = %+v", day)
	}
	if len(sink.alerts) != 1 || len(sink.alerts[0]) != 1 || sink.alerts[0][0].Level != models.AlertWarning {
		t.Errorf("expected one batched warning alert, got %+v", sink.alerts)
	}
}

func TestPublish_NoAlertsWhenAllCompleted(t *testing.T) {
	sink := &recordingSink{}
	agg := NewReportAggregator(mustRepo(t, fixturePlan()), newMemReportStore(), sink, 300, nil)

	if _, err := agg.Publish(time.Now(), 1, []models.TaskResult{result("1.1", models.StatusCompleted, 10)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.alerts) != 0 {
		t.Errorf("expected no alert batch, got %d", len(sink.alerts))
	}
}

func TestPublish_OverwritesSameDate(t *testing.T) {
	store := newMemReportStore()
	agg := NewReportAggregator(mustRepo(t, fixturePlan()), store, nil, 300, nil)
	date := time.Date(2025, time.January, 6, 8, 0, 0, 0, time.UTC)

	agg.Publish(date, 1, []models.TaskResult{result("1.1", models.StatusFailed, 10)})
	agg.Publish(date.Add(time.Hour), 1, []models.TaskResult{result("1.1", models.StatusCompleted, 10)})

	got, _ := store.Get("2025-01-06")
	if got.Summary.Completed != 1 || got.Summary.Failed != 0 {
		t.Errorf("later run did not overwrite: %+v", got.Summary)
	}
	if dates, _ := store.List(); len(dates) != 1 {
		t.Errorf("expected one stored report, got %v", dates)
	}
}

func TestPublish_PersistFailure(t *testing.T) {
	store := newMemReportStore()
	store.saveErr = errors.New("disk full")
	sink := &recordingSink{}
	agg := NewReportAggregator(mustRepo(t, fixturePlan()), store, sink, 300, nil)

	_, err := agg.Publish(time.Now(), 1, nil)
	if !errors.Is(err, ErrReportPersist) {
		t.Fatalf("expected ErrReportPersist, got %v", err)
	}
	if len(sink.days) != 0 {
		t.Error("day notification must not be sent when persistence fails")
	}
}

func TestPublish_SinkErrorsAreNotFatal(t *testing.T) {
	sink := &recordingSink{err: errors.New("webhook down")}
	agg := NewReportAggregator(mustRepo(t, fixturePlan()), newMemReportStore(), sink, 300, nil)

	if _, err := agg.Publish(time.Now(), 1, []models.TaskResult{result("1.1", models.StatusFailed, 3)}); err != nil {
		t.Fatalf("sink failure must not fail publish: %v", err)
	}
}

func TestResultAlerts(t *testing.T) {
	at := time.Now()
	alerts := ResultAlerts([]models.TaskResult{
		result("1.1", models.StatusCompleted, 1),
		result("1.2", models.StatusFailed, 1),
		result("1.3", models.StatusBlocked, 0),
	}, at)

	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Level != models.AlertError || alerts[0].Component != "orchestrator" ||
		!strings.Contains(alerts[0].Message, "1.2") {
		t.Errorf("alerts[0] = %+v", alerts[0])
	}
	if alerts[1].Level != models.AlertWarning || alerts[1].Component != "dependency-gate" ||
		!strings.Contains(alerts[1].Message, "1.3") {
		t.Errorf("alerts[1] = %+v", alerts[1])
	}
}

func TestResultAlerts_UniqueIDsAcrossDays(t *testing.T) {
	failed := []models.TaskResult{result("1.2", models.StatusFailed, 1)}
	day1 := ResultAlerts(failed, time.Now())
	day2 := ResultAlerts(failed, time.Now().Add(24*time.Hour))

	if day1[0].ID == "" || day2[0].ID == "" {
		t.Fatal("alert ids must not be empty")
	}
	if day1[0].ID == day2[0].ID {
		t.Errorf("repeated failure reused alert id %s", day1[0].ID)
	}
}
