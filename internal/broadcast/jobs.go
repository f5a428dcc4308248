package broadcast

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Draw thresholds of the simulated jobs.
const (
	// healthChangeRate is the chance that a health tick picks a new state.
	healthChangeRate = 0.1
	// progressRate is the chance that a progress tick completes a task.
	progressRate = 0.3
)

var healthStates = []models.Health{models.HealthHealthy, models.HealthWarning, models.HealthError}

// PerturbHealth stochastically moves the health state. A transition to
// warning or error appends an alert.
func (b *Broadcaster) PerturbHealth(now time.Time) {
	if b.opts.Source.Float64() >= healthChangeRate {
		return
	}
	idx := int(b.opts.Source.Float64() * float64(len(healthStates)))
	next := healthStates[min(idx, len(healthStates)-1)]

	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.status.Health
	if next == prev {
		return
	}
	b.status.Health = next
	b.status.UpdatedAt = now
	b.opts.Logger.Info("health changed", "from", prev, "to", next)
	if c := b.opts.Collectors; c != nil {
		c.ObserveHealth(next)
	}

	level := models.AlertWarning
	switch next {
	case models.HealthHealthy:
		return
	case models.HealthError:
		level = models.AlertError
	}
	b.addAlertsLocked(models.Alert{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   fmt.Sprintf("system health changed from %s to %s", prev, next),
		Component: "health-monitor",
		Timestamp: now,
	})
}

// SimulateProgress stochastically increments the completed-task counter,
// capped at the total, and appends an informational alert when it does.
func (b *Broadcaster) SimulateProgress(now time.Time) {
	if b.opts.Source.Float64() >= progressRate {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tasks := &b.status.Tasks
	if tasks.Completed >= tasks.Total {
		return
	}
	tasks.Completed++
	b.status.UpdatedAt = now
	b.addAlertsLocked(models.Alert{
		ID:        uuid.NewString(),
		Level:     models.AlertInfo,
		Message:   fmt.Sprintf("progress: %d of %d tasks completed", tasks.Completed, tasks.Total),
		Component: "progress-tracker",
		Timestamp: now,
	})
}
