// Package core contains the orchestration logic of phaseops: the plan
// repository, calendar mapping, day task selection, dependency gating,
// execution simulation, the daily orchestrator, and report aggregation.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// ConfigFileName is the base name (without extension) of the configuration
// file looked up in the base directory.
const ConfigFileName = ".phaseops"

// dateLayout is the layout of phase.start_date.
const dateLayout = "2006-01-02"

// ConfigurationManager loads and validates the phaseops configuration.
type ConfigurationManager interface {
	Load() (models.Config, error)
	ValidateConfig(cfg models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for reading
// the YAML configuration file and PHASEOPS_* environment overrides.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// .phaseops.yaml from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() models.Config {
	return models.Config{
		Phase: models.PhaseConfig{
			StartDate:   time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC),
			HorizonDays: DefaultHorizon,
		},
		PlanFile:   "plan.yaml",
		TeamFile:   "team.yaml",
		ReportsDir: "reports",
		Orchestrator: models.OrchestratorConfig{
			TaskPause:           2 * time.Second,
			FailureRate:         0.05,
			ExpectedTaskSeconds: 300,
			TimeScale:           1,
		},
		Dependencies: models.DependencyConfig{
			Mode:     models.DependencyModeLedger,
			PassRate: 0.8,
		},
		Broadcast: models.BroadcastConfig{
			UpdateInterval:   10 * time.Second,
			HealthInterval:   60 * time.Second,
			ProgressInterval: 30 * time.Second,
			MaxAlerts:        50,
		},
		ServerAddr: ":8080",
		Log: models.LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration file, applies environment overrides and
// returns an immutable Config. A missing file yields the defaults.
func (cm *viperConfigManager) Load() (models.Config, error) {
	cfg := DefaultConfig()
	cfg.BasePath = cm.basePath

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("PHASEOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("phase.start_date", cfg.Phase.StartDate.Format(dateLayout))
	v.SetDefault("phase.horizon_days", cfg.Phase.HorizonDays)
	v.SetDefault("plan.file", cfg.PlanFile)
	v.SetDefault("team.file", cfg.TeamFile)
	v.SetDefault("reports.dir", cfg.ReportsDir)
	v.SetDefault("orchestrator.task_pause", cfg.Orchestrator.TaskPause)
	v.SetDefault("orchestrator.failure_rate", cfg.Orchestrator.FailureRate)
	v.SetDefault("orchestrator.expected_task_seconds", cfg.Orchestrator.ExpectedTaskSeconds)
	v.SetDefault("orchestrator.time_scale", cfg.Orchestrator.TimeScale)
	v.SetDefault("dependencies.mode", cfg.Dependencies.Mode)
	v.SetDefault("dependencies.pass_rate", cfg.Dependencies.PassRate)
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.slack.webhook_url", "")
	v.SetDefault("broadcast.update_interval", cfg.Broadcast.UpdateInterval)
	v.SetDefault("broadcast.health_interval", cfg.Broadcast.HealthInterval)
	v.SetDefault("broadcast.progress_interval", cfg.Broadcast.ProgressInterval)
	v.SetDefault("broadcast.max_alerts", cfg.Broadcast.MaxAlerts)
	v.SetDefault("server.addr", cfg.ServerAddr)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return models.Config{}, fmt.Errorf("reading %s.yaml: %w", ConfigFileName, err)
		}
	}

	start, err := time.Parse(dateLayout, v.GetString("phase.start_date"))
	if err != nil {
		return models.Config{}, fmt.Errorf("parsing phase.start_date: %w", err)
	}
	cfg.Phase.StartDate = start
	cfg.Phase.HorizonDays = v.GetInt("phase.horizon_days")
	cfg.PlanFile = v.GetString("plan.file")
	cfg.TeamFile = v.GetString("team.file")
	cfg.ReportsDir = v.GetString("reports.dir")
	cfg.Orchestrator.TaskPause = v.GetDuration("orchestrator.task_pause")
	cfg.Orchestrator.FailureRate = v.GetFloat64("orchestrator.failure_rate")
	cfg.Orchestrator.ExpectedTaskSeconds = v.GetFloat64("orchestrator.expected_task_seconds")
	cfg.Orchestrator.TimeScale = v.GetFloat64("orchestrator.time_scale")
	cfg.Dependencies.Mode = v.GetString("dependencies.mode")
	cfg.Dependencies.PassRate = v.GetFloat64("dependencies.pass_rate")
	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.Slack.WebhookURL = v.GetString("notifications.slack.webhook_url")
	cfg.Broadcast.UpdateInterval = v.GetDuration("broadcast.update_interval")
	cfg.Broadcast.HealthInterval = v.GetDuration("broadcast.health_interval")
	cfg.Broadcast.ProgressInterval = v.GetDuration("broadcast.progress_interval")
	cfg.Broadcast.MaxAlerts = v.GetInt("broadcast.max_alerts")
	cfg.ServerAddr = v.GetString("server.addr")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")

	return cfg, nil
}

// ValidateConfig checks the configuration for invalid values and returns a
// single error listing every problem.
func (cm *viperConfigManager) ValidateConfig(cfg models.Config) error {
	var errs []string

	if cfg.Phase.HorizonDays < 1 {
		errs = append(errs, fmt.Sprintf("phase.horizon_days must be at least 1, got %d", cfg.Phase.HorizonDays))
	}
	if cfg.Orchestrator.TaskPause < 0 {
		errs = append(errs, fmt.Sprintf("orchestrator.task_pause must not be negative, got %s", cfg.Orchestrator.TaskPause))
	}
	if cfg.Orchestrator.FailureRate < 0 || cfg.Orchestrator.FailureRate > 1 {
		errs = append(errs, fmt.Sprintf("orchestrator.failure_rate must be within [0,1], got %g", cfg.Orchestrator.FailureRate))
	}
	if cfg.Orchestrator.ExpectedTaskSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("orchestrator.expected_task_seconds must be positive, got %g", cfg.Orchestrator.ExpectedTaskSeconds))
	}
	if cfg.Orchestrator.TimeScale < 0 {
		errs = append(errs, fmt.Sprintf("orchestrator.time_scale must not be negative, got %g", cfg.Orchestrator.TimeScale))
	}
	switch cfg.Dependencies.Mode {
	case models.DependencyModeLedger, models.DependencyModeSimulated:
	default:
		errs = append(errs, fmt.Sprintf("dependencies.mode %q is invalid, must be one of: ledger, simulated", cfg.Dependencies.Mode))
	}
	if cfg.Dependencies.PassRate < 0 || cfg.Dependencies.PassRate > 1 {
		errs = append(errs, fmt.Sprintf("dependencies.pass_rate must be within [0,1], got %g", cfg.Dependencies.PassRate))
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url must be set when notifications are enabled")
	}
	intervals := []struct {
		key string
		d   time.Duration
	}{
		{"broadcast.update_interval", cfg.Broadcast.UpdateInterval},
		{"broadcast.health_interval", cfg.Broadcast.HealthInterval},
		{"broadcast.progress_interval", cfg.Broadcast.ProgressInterval},
	}
	for _, iv := range intervals {
		if iv.d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got %s", iv.key, iv.d))
		}
	}
	if cfg.Broadcast.MaxAlerts < 1 {
		errs = append(errs, fmt.Sprintf("broadcast.max_alerts must be at least 1, got %d", cfg.Broadcast.MaxAlerts))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is invalid, must be one of: text, json", cfg.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
