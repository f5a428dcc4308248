package models

import "time"

// Health is the coarse health state of the live system snapshot.
type Health string

const (
	HealthHealthy Health = "healthy"
	HealthWarning Health = "warning"
	HealthError   Health = "error"
)

// AlertLevel is the urgency of an alert.
type AlertLevel string

const (
	AlertInfo    AlertLevel = "info"
	AlertWarning AlertLevel = "warning"
	AlertError   AlertLevel = "error"
)

// Alert is a single entry of the bounded alert history.
type Alert struct {
	ID        string     `json:"id"`
	Level     AlertLevel `json:"level"`
	Message   string     `json:"message"`
	Component string     `json:"component"`
	Timestamp time.Time  `json:"timestamp"`
}

// PhaseProgress is the position of today within the phase horizon.
type PhaseProgress struct {
	CurrentDay    int `json:"currentDay"`
	DaysRemaining int `json:"daysRemaining"`
	Percent       int `json:"percent"`
}

// TaskCounters aggregates task outcomes across the phase.
type TaskCounters struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Blocked   int `json:"blocked"`
}

// SystemStatus is the live snapshot pushed to observers.
type SystemStatus struct {
	Phase     PhaseProgress `json:"phase"`
	Tasks     TaskCounters  `json:"tasks"`
	Health    Health        `json:"health"`
	Alerts    []Alert       `json:"alerts"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// LiveMetrics is the metrics section of a broadcast update, derived from the
// most recent daily report.
type LiveMetrics struct {
	LastReportDate     string `json:"lastReportDate,omitempty"`
	TasksToday         int    `json:"tasksToday"`
	SuccessRate        string `json:"successRate"`
	Efficiency         int    `json:"efficiency"`
	TotalTimeMinutes   int    `json:"totalTimeMinutes"`
	AverageTimeSeconds int    `json:"averageTimeSeconds"`
}

// TeamMember is one entry of team.yaml.
type TeamMember struct {
	Name  string `yaml:"name" json:"name"`
	Role  string `yaml:"role" json:"role"`
	Focus string `yaml:"focus,omitempty" json:"focus,omitempty"`
}

// Team is the top-level structure of team.yaml.
type Team struct {
	Members []TeamMember `yaml:"members" json:"members"`
}

// TeamMemberState joins a team member with the work scheduled for them today.
type TeamMemberState struct {
	TeamMember
	State      string   `json:"state"` // active, idle
	TasksToday []string `json:"tasksToday"`
}

// UpdatePayload is the data section of a periodic broadcast update.
type UpdatePayload struct {
	Status  SystemStatus      `json:"status"`
	Metrics LiveMetrics       `json:"metrics"`
	Team    []TeamMemberState `json:"team"`
}

// Observer message types.
const (
	MessageInitial = "initial"
	MessageUpdate  = "update"
)

// ObserverMessage is the envelope sent over the observer channel.
type ObserverMessage struct {
	Type      string     `json:"type"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Data      any        `json:"data"`
}
