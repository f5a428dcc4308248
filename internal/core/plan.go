package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Plan validation errors.
var (
	ErrDuplicateTask     = errors.New("duplicate task id")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrDependencyCycle   = errors.New("dependency cycle")
	ErrDayOutOfRange     = errors.New("scheduled day out of range")
)

// PlanRepository is the immutable, validated task table of a phase.
type PlanRepository struct {
	weeks   []models.Week
	order   []string
	byID    map[string]models.TaskDefinition
	weekOf  map[string]int
	horizon int
}

// NewPlanRepository validates plan and builds a repository over it. Task ids
// must be unique, dependencies must reference existing tasks without forming
// a cycle, and scheduled days must lie within [1, horizon].
func NewPlanRepository(plan models.Plan, horizon int) (*PlanRepository, error) {
	r := &PlanRepository{
		byID:    make(map[string]models.TaskDefinition),
		weekOf:  make(map[string]int),
		horizon: horizon,
	}

	for wi, w := range plan.Weeks {
		week := models.Week{Name: w.Name, Tasks: make([]models.TaskDefinition, 0, len(w.Tasks))}
		for _, t := range w.Tasks {
			if t.ID == "" {
				return nil, fmt.Errorf("week %q: task %q has no id", w.Name, t.Name)
			}
			if _, exists := r.byID[t.ID]; exists {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
			}
			for _, d := range t.Days {
				if d < 1 || d > horizon {
					return nil, fmt.Errorf("%w: task %s scheduled on day %d (horizon %d)", ErrDayOutOfRange, t.ID, d, horizon)
				}
			}
			t = copyTask(t)
			r.byID[t.ID] = t
			r.weekOf[t.ID] = wi + 1
			r.order = append(r.order, t.ID)
			week.Tasks = append(week.Tasks, t)
		}
		r.weeks = append(r.weeks, week)
	}

	for _, id := range r.order {
		for _, dep := range r.byID[id].Deps {
			if _, ok := r.byID[dep]; !ok {
				return nil, fmt.Errorf("%w: task %s depends on %s", ErrUnknownDependency, id, dep)
			}
		}
	}
	if cycle := r.findCycle(); cycle != nil {
		return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(cycle, " -> "))
	}

	return r, nil
}

// EmptyPlanRepository returns a repository with no tasks.
func EmptyPlanRepository(horizon int) *PlanRepository {
	r, _ := NewPlanRepository(models.Plan{}, horizon)
	return r
}

func copyTask(t models.TaskDefinition) models.TaskDefinition {
	t.Days = append([]int(nil), t.Days...)
	t.Deps = append([]string(nil), t.Deps...)
	return t
}

// findCycle runs a three-colour DFS over the dependency graph and returns the
// first cycle found, or nil.
func (r *PlanRepository) findCycle() []string {
	const (
		white = iota
		grey
		black
	)
	colour := make(map[string]int, len(r.order))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		colour[id] = grey
		stack = append(stack, id)
		for _, dep := range r.byID[id].Deps {
			switch colour[dep] {
			case grey:
				for i, s := range stack {
					if s == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						break
					}
				}
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		colour[id] = black
		return false
	}

	for _, id := range r.order {
		if colour[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

// Horizon returns the number of days in the phase.
func (r *PlanRepository) Horizon() int { return r.horizon }

// Weeks returns the plan weeks in order.
func (r *PlanRepository) Weeks() []models.Week {
	out := make([]models.Week, len(r.weeks))
	copy(out, r.weeks)
	return out
}

// Task returns the definition with the given id.
func (r *PlanRepository) Task(id string) (models.TaskDefinition, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// Total returns the number of tasks in the plan.
func (r *PlanRepository) Total() int { return len(r.order) }

// TasksForDay returns, in plan order, the tasks whose scheduled days contain
// day, annotated with week information. An empty result is valid.
func (r *PlanRepository) TasksForDay(day int) []models.ScheduledTask {
	var out []models.ScheduledTask
	for _, id := range r.order {
		t := r.byID[id]
		if !t.ScheduledOn(day) {
			continue
		}
		pw := r.weekOf[id]
		out = append(out, models.ScheduledTask{
			TaskDefinition: t,
			Day:            day,
			Week:           WeekForDay(day),
			PlanWeek:       pw,
			WeekName:       r.weeks[pw-1].Name,
			DisplayID:      fmt.Sprintf("W%d-%s", pw, t.ID),
		})
	}
	return out
}

// CountForDay returns the number of tasks scheduled on day.
func (r *PlanRepository) CountForDay(day int) int {
	n := 0
	for _, id := range r.order {
		if r.byID[id].ScheduledOn(day) {
			n++
		}
	}
	return n
}

// TasksByOwner returns the ids of tasks scheduled on day grouped by owner.
func (r *PlanRepository) TasksByOwner(day int) map[string][]string {
	out := make(map[string][]string)
	for _, t := range r.TasksForDay(day) {
		out[t.Owner] = append(out[t.Owner], t.ID)
	}
	return out
}
