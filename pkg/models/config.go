package models

import "time"

// Dependency oracle modes.
const (
	DependencyModeLedger    = "ledger"
	DependencyModeSimulated = "simulated"
)

// PhaseConfig describes the fixed scheduling horizon.
type PhaseConfig struct {
	StartDate   time.Time `yaml:"start_date" mapstructure:"start_date"`
	HorizonDays int       `yaml:"horizon_days" mapstructure:"horizon_days"`
}

// OrchestratorConfig controls pacing and simulated outcomes of a daily cycle.
type OrchestratorConfig struct {
	TaskPause           time.Duration `yaml:"task_pause" mapstructure:"task_pause"`
	FailureRate         float64       `yaml:"failure_rate" mapstructure:"failure_rate"`
	ExpectedTaskSeconds float64       `yaml:"expected_task_seconds" mapstructure:"expected_task_seconds"`
	// TimeScale multiplies simulated durations and the task pause before
	// sleeping. Zero disables sleeping; reported durations are unaffected.
	TimeScale float64 `yaml:"time_scale" mapstructure:"time_scale"`
}

// DependencyConfig selects the dependency readiness oracle.
type DependencyConfig struct {
	Mode     string  `yaml:"mode" mapstructure:"mode"`
	PassRate float64 `yaml:"pass_rate" mapstructure:"pass_rate"`
}

// SlackConfig holds the webhook used by the Slack notifier.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig controls the external notification sink.
type NotificationConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// BroadcastConfig holds the periods of the status broadcaster jobs.
type BroadcastConfig struct {
	UpdateInterval   time.Duration `yaml:"update_interval" mapstructure:"update_interval"`
	HealthInterval   time.Duration `yaml:"health_interval" mapstructure:"health_interval"`
	ProgressInterval time.Duration `yaml:"progress_interval" mapstructure:"progress_interval"`
	MaxAlerts        int           `yaml:"max_alerts" mapstructure:"max_alerts"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// Config is the immutable configuration value built once at startup from
// .phaseops.yaml and passed explicitly to every component.
type Config struct {
	BasePath      string             `yaml:"-" mapstructure:"-"`
	Phase         PhaseConfig        `yaml:"phase" mapstructure:"phase"`
	// PlanFile, TeamFile, ReportsDir and ServerAddr are read from the nested
	// keys plan.file, team.file, reports.dir and server.addr.
	PlanFile      string             `yaml:"-" mapstructure:"-"`
	TeamFile      string             `yaml:"-" mapstructure:"-"`
	ReportsDir    string             `yaml:"-" mapstructure:"-"`
	Orchestrator  OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Dependencies  DependencyConfig   `yaml:"dependencies" mapstructure:"dependencies"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
	Broadcast     BroadcastConfig    `yaml:"broadcast" mapstructure:"broadcast"`
	ServerAddr    string             `yaml:"-" mapstructure:"-"`
	Log           LogConfig          `yaml:"log" mapstructure:"log"`
}
