package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Category is the work category a task name is classified into.
type Category string

const (
	CategorySchema      Category = "Schema"
	CategoryVector      Category = "Vector"
	CategoryMemory      Category = "Memory"
	CategorySafety      Category = "Safety"
	CategoryTesting     Category = "Testing"
	CategoryIntegration Category = "Integration"
	CategoryDashboard   Category = "Dashboard"
)

// categoryOrder is the keyword scan order; the first match wins.
var categoryOrder = []Category{
	CategorySchema,
	CategoryVector,
	CategoryMemory,
	CategorySafety,
	CategoryTesting,
	CategoryIntegration,
	CategoryDashboard,
}

// durationProfile is the base duration and jitter of a category, in seconds.
type durationProfile struct {
	base     float64
	variance float64
}

var profiles = map[Category]durationProfile{
	CategorySchema:      {base: 3, variance: 2},
	CategoryVector:      {base: 4, variance: 3},
	CategoryMemory:      {base: 3.5, variance: 2},
	CategorySafety:      {base: 2.5, variance: 1.5},
	CategoryTesting:     {base: 5, variance: 3},
	CategoryIntegration: {base: 6, variance: 4},
	CategoryDashboard:   {base: 4, variance: 2},
}

// failureReasons are picked by category for synthetic failure messages.
var failureReasons = map[Category]string{
	CategorySchema:      "schema validation rejected generated definitions",
	CategoryVector:      "vector index build timed out",
	CategoryMemory:      "memory store returned inconsistent read",
	CategorySafety:      "safety evaluation exceeded violation threshold",
	CategoryTesting:     "test suite reported regressions",
	CategoryIntegration: "upstream integration endpoint unavailable",
	CategoryDashboard:   "dashboard build step failed",
}

// Classify returns the category of a task name by scanning for category
// keywords in fixed order. Names without a keyword are Schema work.
func Classify(name string) Category {
	lower := strings.ToLower(name)
	for _, c := range categoryOrder {
		if strings.Contains(lower, strings.ToLower(string(c))) {
			return c
		}
	}
	return CategorySchema
}

// Sleeper blocks for a duration.
type Sleeper interface {
	Sleep(d time.Duration)
}

// Execution is the outcome of one simulated run.
type Execution struct {
	Status   models.ExecutionStatus
	Message  string
	Duration time.Duration
	Category Category
}

// Simulator produces simulated execution outcomes for tasks.
type Simulator struct {
	src         OutcomeSource
	sleeper     Sleeper
	failureRate float64
	timeScale   float64
}

// NewSimulator creates a Simulator. timeScale multiplies the simulated
// duration before sleeping; zero disables sleeping.
func NewSimulator(src OutcomeSource, sleeper Sleeper, failureRate, timeScale float64) *Simulator {
	return &Simulator{
		src:         src,
		sleeper:     sleeper,
		failureRate: failureRate,
		timeScale:   timeScale,
	}
}

// Run simulates a task. It blocks for the simulated duration, then draws a
// failure event; nothing about the run is observable before it returns.
func (s *Simulator) Run(task models.TaskDefinition) Execution {
	cat := Classify(task.Name)
	p := profiles[cat]
	seconds := p.base + s.src.Float64()*p.variance
	d := time.Duration(seconds * float64(time.Second))

	if s.timeScale > 0 && s.sleeper != nil {
		s.sleeper.Sleep(time.Duration(float64(d) * s.timeScale))
	}

	if s.src.Float64() < s.failureRate {
		return Execution{
			Status:   models.StatusFailed,
			Message:  fmt.Sprintf("%s task failed: %s", cat, failureReasons[cat]),
			Duration: d,
			Category: cat,
		}
	}
	return Execution{
		Status:   models.StatusCompleted,
		Message:  fmt.Sprintf("%s task completed in %.1fs", cat, seconds),
		Duration: d,
		Category: cat,
	}
}
