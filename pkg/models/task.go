package models

import "time"

// TaskDefinition is a single entry of the phase plan. Definitions are loaded
// once and never mutated afterwards.
type TaskDefinition struct {
	ID    string   `yaml:"id" json:"id"`
	Name  string   `yaml:"name" json:"name"`
	Owner string   `yaml:"owner" json:"owner"`
	Hours float64  `yaml:"hours" json:"hours"`
	Days  []int    `yaml:"days" json:"days"`
	Deps  []string `yaml:"deps,omitempty" json:"deps,omitempty"`
}

// ScheduledOn reports whether the task is scheduled on the given day index.
func (t TaskDefinition) ScheduledOn(day int) bool {
	for _, d := range t.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Week is a named milestone group of tasks.
type Week struct {
	Name  string           `yaml:"name" json:"name"`
	Tasks []TaskDefinition `yaml:"tasks" json:"tasks"`
}

// Plan is the static nested plan input: an ordered list of weeks.
type Plan struct {
	Phase string `yaml:"phase,omitempty" json:"phase,omitempty"`
	Weeks []Week `yaml:"weeks" json:"weeks"`
}

// ScheduledTask is a task definition selected for a specific day, annotated
// with its week position and a display identifier.
type ScheduledTask struct {
	TaskDefinition
	Day       int    `json:"day"`
	Week      int    `json:"week"`
	PlanWeek  int    `json:"plan_week"`
	WeekName  string `json:"week_name"`
	DisplayID string `json:"display_id"`
}

// ExecutionStatus is the settled state of a task within one cycle.
type ExecutionStatus string

const (
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusBlocked   ExecutionStatus = "blocked"
)

// TaskResult records the outcome of one task in one orchestration cycle.
type TaskResult struct {
	TaskID          string          `json:"taskId"`
	Name            string          `json:"name"`
	Owner           string          `json:"owner"`
	Status          ExecutionStatus `json:"status"`
	Message         string          `json:"message"`
	StartedAt       time.Time       `json:"startedAt"`
	EndedAt         time.Time       `json:"endedAt"`
	DurationSeconds float64         `json:"durationSeconds"`
}

// TaskNotification is the per-task message handed to notification sinks.
type TaskNotification struct {
	TaskID          string          `json:"taskId"`
	Name            string          `json:"name"`
	Owner           string          `json:"owner"`
	Status          ExecutionStatus `json:"status"`
	DurationSeconds float64         `json:"durationSeconds"`
	Message         string          `json:"message"`
}

// NotificationFor converts a result into its per-task notification.
func NotificationFor(r TaskResult) TaskNotification {
	return TaskNotification{
		TaskID:          r.TaskID,
		Name:            r.Name,
		Owner:           r.Owner,
		Status:          r.Status,
		DurationSeconds: r.DurationSeconds,
		Message:         r.Message,
	}
}
