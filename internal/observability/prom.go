package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Collectors holds the Prometheus metrics exported by phaseops.
type Collectors struct {
	// Orchestrator
	TaskExecutions *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	Cycles         prometheus.Counter
	LastEfficiency prometheus.Gauge
	LastSuccess    prometheus.Gauge
	PhaseDay       prometheus.Gauge

	// Broadcaster
	Observers         prometheus.Gauge
	Broadcasts        prometheus.Counter
	DeliveryFailures  prometheus.Counter
	AlertsRetained    prometheus.Gauge
	HealthTransitions *prometheus.CounterVec
}

// NewCollectors registers the phaseops metrics with registry.
func NewCollectors(registry prometheus.Registerer) *Collectors {
	factory := promauto.With(registry)

	return &Collectors{
		TaskExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phaseops_task_executions_total",
				Help: "Settled tasks by status and category",
			},
			[]string{"status", "category"},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phaseops_task_duration_seconds",
				Help:    "Simulated task duration in seconds",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
			},
			[]string{"category"},
		),
		Cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "phaseops_cycles_total",
			Help: "Daily cycles whose report was published",
		}),
		LastEfficiency: factory.NewGauge(prometheus.GaugeOpts{
			Name: "phaseops_last_efficiency",
			Help: "Efficiency score of the most recent daily report",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "phaseops_last_success_rate_percent",
			Help: "Success rate of the most recent daily report",
		}),
		PhaseDay: factory.NewGauge(prometheus.GaugeOpts{
			Name: "phaseops_phase_day",
			Help: "Day index of the most recent daily report",
		}),
		Observers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "phaseops_observers",
			Help: "Connected status observers",
		}),
		Broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Name: "phaseops_broadcasts_total",
			Help: "Status updates broadcast to observers",
		}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "phaseops_delivery_failures_total",
			Help: "Observer deliveries that failed and pruned the observer",
		}),
		AlertsRetained: factory.NewGauge(prometheus.GaugeOpts{
			Name: "phaseops_alerts_retained",
			Help: "Alerts currently held in the bounded alert history",
		}),
		HealthTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phaseops_health_transitions_total",
				Help: "Health state changes by target state",
			},
			[]string{"health"},
		),
	}
}

// NewRegistry creates a fresh registry with the phaseops collectors.
func NewRegistry() (*prometheus.Registry, *Collectors) {
	reg := prometheus.NewRegistry()
	return reg, NewCollectors(reg)
}

// ObserveTask records one settled task. Blocked tasks carry no category.
func (c *Collectors) ObserveTask(result models.TaskResult, category string) {
	if category == "" {
		category = "none"
	}
	c.TaskExecutions.WithLabelValues(string(result.Status), category).Inc()
	if result.Status != models.StatusBlocked {
		c.TaskDuration.WithLabelValues(category).Observe(result.DurationSeconds)
	}
}

// ObserveCycle records a published daily report.
func (c *Collectors) ObserveCycle(report models.DailyReport) {
	c.Cycles.Inc()
	c.LastEfficiency.Set(float64(report.Performance.Efficiency))
	c.PhaseDay.Set(float64(report.Day))
	if rate, err := strconv.ParseFloat(report.Summary.SuccessRate, 64); err == nil {
		c.LastSuccess.Set(rate)
	}
}

// SetObservers records the number of connected observers.
func (c *Collectors) SetObservers(n int) { c.Observers.Set(float64(n)) }

// ObserveBroadcast records one update tick with its failed deliveries.
func (c *Collectors) ObserveBroadcast(failed int) {
	c.Broadcasts.Inc()
	c.DeliveryFailures.Add(float64(failed))
}

// SetAlerts records the size of the alert history.
func (c *Collectors) SetAlerts(n int) { c.AlertsRetained.Set(float64(n)) }

// ObserveHealth records a health transition.
func (c *Collectors) ObserveHealth(h models.Health) {
	c.HealthTransitions.WithLabelValues(string(h)).Inc()
}
