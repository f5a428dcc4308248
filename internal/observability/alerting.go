package observability

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/valter-silva-au/phaseops/pkg/models"
)

// AlertThresholds configures when historical alerts fire.
type AlertThresholds struct {
	// FailureStreak is the number of consecutive failed runs of one task.
	FailureStreak int `yaml:"failure_streak" json:"failure_streak"`
	// BlockedStreak is the number of consecutive blocked runs of one task.
	BlockedStreak int `yaml:"blocked_streak" json:"blocked_streak"`
	// Window is the number of most recent settled tasks considered for the
	// success rate check.
	Window int `yaml:"window" json:"window"`
	// MinSuccessPercent is the lowest acceptable success rate over Window.
	MinSuccessPercent float64 `yaml:"min_success_percent" json:"min_success_percent"`
}

// DefaultAlertThresholds returns the default alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		FailureStreak:     2,
		BlockedStreak:     3,
		Window:            10,
		MinSuccessPercent: 50,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]models.Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate reads settled-task events and returns the triggered alerts,
// ordered by id.
func (ae *alertEngine) Evaluate() ([]models.Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{Type: EventTaskSettled})
	if err != nil {
		return nil, fmt.Errorf("reading settled tasks: %w", err)
	}
	now := ae.now()

	history := make(map[string][]string)
	var statuses []string
	for _, event := range events {
		taskID, _ := event.Data["task_id"].(string)
		status, _ := event.Data["status"].(string)
		if taskID == "" || status == "" {
			continue
		}
		history[taskID] = append(history[taskID], status)
		statuses = append(statuses, status)
	}

	var alerts []models.Alert
	for taskID, runs := range history {
		if n := ae.thresholds.FailureStreak; n > 0 && trailing(runs, "failed") >= n {
			alerts = append(alerts, models.Alert{
				ID:        "repeated-failure-" + taskID,
				Level:     models.AlertError,
				Message:   fmt.Sprintf("task %s failed %d times in a row", taskID, trailing(runs, "failed")),
				Component: "orchestrator",
				Timestamp: now,
			})
		}
		if n := ae.thresholds.BlockedStreak; n > 0 && trailing(runs, "blocked") >= n {
			alerts = append(alerts, models.Alert{
				ID:        "stuck-" + taskID,
				Level:     models.AlertWarning,
				Message:   fmt.Sprintf("task %s blocked on dependencies for %d runs", taskID, trailing(runs, "blocked")),
				Component: "dependency-gate",
				Timestamp: now,
			})
		}
	}

	if w := ae.thresholds.Window; w > 0 && len(statuses) >= w {
		recent := statuses[len(statuses)-w:]
		completed := 0
		for _, s := range recent {
			if s == "completed" {
				completed++
			}
		}
		rate := float64(completed) / float64(w) * 100
		if rate < ae.thresholds.MinSuccessPercent {
			alerts = append(alerts, models.Alert{
				ID:        "low-success-rate",
				Level:     models.AlertWarning,
				Message:   fmt.Sprintf("success rate over the last %d tasks is %.1f%%, below %.0f%%", w, rate, ae.thresholds.MinSuccessPercent),
				Component: "orchestrator",
				Timestamp: now,
			})
		}
	}

	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
	return alerts, nil
}

// trailing counts how many of the last entries of runs equal status.
func trailing(runs []string, status string) int {
	n := 0
	for i := len(runs) - 1; i >= 0 && runs[i] == status; i-- {
		n++
	}
	return n
}

// AlertHistory is a bounded, newest-first list of alerts kept in a fixed-size
// ring. Pushing beyond capacity overwrites the oldest entries.
type AlertHistory struct {
	mu   sync.Mutex
	buf  []models.Alert
	head int // index of the newest alert
	n    int
}

// NewAlertHistory creates an AlertHistory holding at most capacity alerts.
func NewAlertHistory(capacity int) *AlertHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &AlertHistory{buf: make([]models.Alert, capacity), head: capacity - 1}
}

// Push adds alerts in the order given, so the last one ends up first.
func (h *AlertHistory) Push(alerts ...models.Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, a := range alerts {
		h.head = (h.head + 1) % len(h.buf)
		h.buf[h.head] = a
		h.n = min(h.n+1, len(h.buf))
	}
}

// List returns a copy of the alerts, newest first.
func (h *AlertHistory) List() []models.Alert {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.Alert, h.n)
	for i := range out {
		out[i] = h.buf[(h.head-i+len(h.buf))%len(h.buf)]
	}
	return out
}

// Len returns the number of retained alerts.
func (h *AlertHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

// Capacity returns the maximum number of retained alerts.
func (h *AlertHistory) Capacity() int { return len(h.buf) }
