package observability

import (
	"fmt"
	"strconv"
	"time"
)

// Metrics holds historical execution metrics derived from the event log.
type Metrics struct {
	CyclesRun              int            `json:"cycles_run"`
	TasksSettled           int            `json:"tasks_settled"`
	TasksByStatus          map[string]int `json:"tasks_by_status"`
	TasksByOwner           map[string]int `json:"tasks_by_owner"`
	AverageDurationSeconds float64        `json:"average_duration_seconds"`
	SuccessRate            string         `json:"success_rate"`
	EventCount             int            `json:"event_count"`
	OldestEvent            *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent            *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates all events since the given time. Average duration
// only counts tasks that executed, so blocked tasks are excluded.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		TasksByStatus: make(map[string]int),
		TasksByOwner:  make(map[string]int),
		SuccessRate:   "0",
		EventCount:    len(events),
	}

	var totalSeconds float64
	executed := 0
	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch event.Type {
		case EventCycleCompleted:
			m.CyclesRun++
		case EventTaskSettled:
			m.TasksSettled++
			status, _ := event.Data["status"].(string)
			if status != "" {
				m.TasksByStatus[status]++
			}
			if owner, ok := event.Data["owner"].(string); ok && owner != "" {
				m.TasksByOwner[owner]++
			}
			if status != "blocked" {
				if secs, ok := event.Data["duration_seconds"].(float64); ok {
					totalSeconds += secs
					executed++
				}
			}
		}
	}

	if executed > 0 {
		m.AverageDurationSeconds = totalSeconds / float64(executed)
	}
	if m.TasksSettled > 0 {
		rate := float64(m.TasksByStatus["completed"]) / float64(m.TasksSettled) * 100
		m.SuccessRate = strconv.FormatFloat(rate, 'f', 1, 64)
	}
	return m, nil
}
