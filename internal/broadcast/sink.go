package broadcast

import "github.com/valter-silva-au/phaseops/pkg/models"

// The Broadcaster doubles as a notification sink so that a cycle running in
// the same process feeds the live snapshot. None of these methods fail.

// NotifyTask counts a settled task. Counters hold the latest outcome of each
// task id, so a task retried across cycles moves between counters instead of
// being counted twice.
func (b *Broadcaster) NotifyTask(n models.TaskNotification) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n.TaskID != "" {
		prev, seen := b.outcomes[n.TaskID]
		if seen && prev == n.Status {
			b.status.UpdatedAt = b.opts.Clock.Now()
			return nil
		}
		if seen {
			b.countLocked(prev, -1)
		}
		b.outcomes[n.TaskID] = n.Status
	}
	b.countLocked(n.Status, 1)
	b.status.UpdatedAt = b.opts.Clock.Now()
	return nil
}

func (b *Broadcaster) countLocked(status models.ExecutionStatus, delta int) {
	tasks := &b.status.Tasks
	switch status {
	case models.StatusCompleted:
		tasks.Completed = min(max(tasks.Completed+delta, 0), tasks.Total)
	case models.StatusFailed:
		tasks.Failed = max(tasks.Failed+delta, 0)
	case models.StatusBlocked:
		tasks.Blocked = max(tasks.Blocked+delta, 0)
	}
}

// NotifyDay replaces the metrics section with the day's figures.
func (b *Broadcaster) NotifyDay(n models.DayNotification) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.metrics.LastReportDate = n.Date
	b.metrics.TasksToday = n.TasksToday
	b.metrics.SuccessRate = n.SuccessRate
	b.metrics.Efficiency = n.Efficiency
	b.metrics.TotalTimeMinutes = n.TotalTimeMinutes
	return nil
}

// NotifyAlerts appends the alerts to the history.
func (b *Broadcaster) NotifyAlerts(alerts []models.Alert) error {
	b.AddAlerts(alerts...)
	return nil
}
