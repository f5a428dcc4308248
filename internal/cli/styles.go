package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Style definitions shared by the console summaries and the dashboard.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusCompleted = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusBlocked   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))

	levelError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	levelWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	levelInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func styleForStatus(status models.ExecutionStatus) lipgloss.Style {
	switch status {
	case models.StatusCompleted:
		return statusCompleted
	case models.StatusFailed:
		return statusFailed
	case models.StatusBlocked:
		return statusBlocked
	default:
		return lipgloss.NewStyle()
	}
}

func styleForLevel(level string) lipgloss.Style {
	switch strings.ToLower(level) {
	case string(models.AlertError):
		return levelError
	case string(models.AlertWarning):
		return levelWarning
	case string(models.AlertInfo):
		return levelInfo
	default:
		return lipgloss.NewStyle()
	}
}

func styleForHealth(h models.Health) lipgloss.Style {
	switch h {
	case models.HealthHealthy:
		return statusCompleted
	case models.HealthWarning:
		return levelWarning
	case models.HealthError:
		return levelError
	default:
		return lipgloss.NewStyle()
	}
}

// levelRank orders alert levels most severe first.
func levelRank(level models.AlertLevel) int {
	switch level {
	case models.AlertError:
		return 0
	case models.AlertWarning:
		return 1
	case models.AlertInfo:
		return 2
	default:
		return 3
	}
}
