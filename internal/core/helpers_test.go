package core

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/valter-silva-au/phaseops/pkg/models"
)

// --- Fixtures ---

func fixturePlan() models.Plan {
	return models.Plan{
		Phase: "fixture",
		Weeks: []models.Week{
			{
				Name: "Foundation",
				Tasks: []models.TaskDefinition{
					{ID: "1.1", Name: "Schema design", Owner: "alice", Hours: 6, Days: []int{1}},
					{ID: "1.2", Name: "Vector store setup", Owner: "bob", Hours: 4, Days: []int{1}},
					{ID: "1.3", Name: "Memory scaffolding", Owner: "carol", Hours: 5, Days: []int{1}},
					{ID: "1.4", Name: "Safety rules", Owner: "alice", Hours: 3, Days: []int{2, 3}, Deps: []string{"1.1"}},
					{ID: "1.5", Name: "Testing harness", Owner: "bob", Hours: 4, Days: []int{2}, Deps: []string{"1.2", "1.3"}},
				},
			},
			{
				Name: "Integration",
				Tasks: []models.TaskDefinition{
					{ID: "2.1", Name: "Integration pipeline", Owner: "carol", Hours: 8, Days: []int{8, 9}, Deps: []string{"1.5"}},
				},
			},
			{
				Name: "Launch",
				Tasks: []models.TaskDefinition{
					{ID: "3.1", Name: "Dashboard polish", Owner: "dave", Hours: 5, Days: []int{13, 18}},
				},
			},
		},
	}
}

func mustRepo(t *testing.T, plan models.Plan) *PlanRepository {
	t.Helper()
	repo, err := NewPlanRepository(plan, DefaultHorizon)
	if err != nil {
		t.Fatalf("building plan repository: %v", err)
	}
	return repo
}

// --- Fakes ---

// stepClock advances its own time on Sleep and records every pause.
type stepClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newStepClock(now time.Time) *stepClock { return &stepClock{now: now} }

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *stepClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type memReportStore struct {
	reports map[string]models.DailyReport
	saveErr error
}

func newMemReportStore() *memReportStore {
	return &memReportStore{reports: make(map[string]models.DailyReport)}
}

func (s *memReportStore) Save(r models.DailyReport) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.reports[r.Date] = r
	return nil
}

func (s *memReportStore) Get(date string) (*models.DailyReport, error) {
	r, ok := s.reports[date]
	if !ok {
		return nil, fmt.Errorf("report %s not found", date)
	}
	return &r, nil
}

func (s *memReportStore) List() ([]string, error) {
	var dates []string
	for d := range s.reports {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *memReportStore) Latest() (*models.DailyReport, error) {
	dates, _ := s.List()
	if len(dates) == 0 {
		return nil, nil
	}
	return s.Get(dates[len(dates)-1])
}

type recordingSink struct {
	tasks  []models.TaskNotification
	days   []models.DayNotification
	alerts [][]models.Alert
	err    error
	// order records every call as "task:<id>", "day" or "alerts".
	order []string
}

func (s *recordingSink) NotifyTask(n models.TaskNotification) error {
	s.tasks = append(s.tasks, n)
	s.order = append(s.order, "task:"+n.TaskID)
	return s.err
}

func (s *recordingSink) NotifyDay(n models.DayNotification) error {
	s.days = append(s.days, n)
	s.order = append(s.order, "day")
	return s.err
}

func (s *recordingSink) NotifyAlerts(a []models.Alert) error {
	s.alerts = append(s.alerts, a)
	s.order = append(s.order, "alerts")
	return s.err
}

type memLedger struct {
	done map[string]time.Time
}

func newMemLedger(ids ...string) *memLedger {
	l := &memLedger{done: make(map[string]time.Time)}
	for _, id := range ids {
		l.done[id] = time.Time{}
	}
	return l
}

func (l *memLedger) IsCompleted(id string) bool {
	_, ok := l.done[id]
	return ok
}

func (l *memLedger) MarkCompleted(id string, at time.Time) error {
	l.done[id] = at
	return nil
}

type fixedOracle struct {
	ready bool
	err   error
	calls int
}

func (o *fixedOracle) Satisfied(_ []string) (bool, error) {
	o.calls++
	return o.ready, o.err
}

type panicOracle struct{}

func (panicOracle) Satisfied(_ []string) (bool, error) { panic("oracle exploded") }
