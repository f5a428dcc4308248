package broadcast

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valter-silva-au/phaseops/internal/core"
	"github.com/valter-silva-au/phaseops/internal/observability"
	"github.com/valter-silva-au/phaseops/internal/schedule"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

var start = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func testPlan(t *testing.T) *core.PlanRepository {
	t.Helper()
	repo, err := core.NewPlanRepository(models.Plan{Weeks: []models.Week{
		{Name: "Foundation", Tasks: []models.TaskDefinition{
			{ID: "1.1", Name: "Schema design", Owner: "alice", Days: []int{1}},
			{ID: "1.2", Name: "Vector store", Owner: "bob", Days: []int{1}},
			{ID: "1.3", Name: "Memory layer", Owner: "alice", Days: []int{2}},
		}},
	}}, core.DefaultHorizon)
	require.NoError(t, err)
	return repo
}

// fakeObserver records every message and fails once failAfter sends succeed.
type fakeObserver struct {
	id        string
	mu        sync.Mutex
	msgs      []models.ObserverMessage
	failAfter int
	closed    bool
}

func newObserver(id string) *fakeObserver { return &fakeObserver{id: id, failAfter: -1} }

func (o *fakeObserver) ID() string { return o.id }

func (o *fakeObserver) Send(msg models.ObserverMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failAfter >= 0 && len(o.msgs) >= o.failAfter {
		return errors.New("connection reset")
	}
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *fakeObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *fakeObserver) messages() []models.ObserverMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.ObserverMessage{}, o.msgs...)
}

// memReports is an in-memory core.ReportStore.
type memReports struct{ latest *models.DailyReport }

func (m *memReports) Save(r models.DailyReport) error { m.latest = &r; return nil }
func (m *memReports) Get(string) (*models.DailyReport, error) {
	return nil, errors.New("not implemented")
}
func (m *memReports) List() ([]string, error)              { return nil, nil }
func (m *memReports) Latest() (*models.DailyReport, error) { return m.latest, nil }

type fixture struct {
	b     *Broadcaster
	clock *clockwork.FakeClock
	src   *core.SequenceSource
	coll  *observability.Collectors
}

func newFixture(t *testing.T, draws ...float64) fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(start.Add(9 * time.Hour))
	src := core.NewSequenceSource(draws...)
	_, coll := observability.NewRegistry()
	b, err := New(Options{
		Plan:       testPlan(t),
		Calendar:   core.NewCalendar(start, core.DefaultHorizon),
		Team:       models.Team{Members: []models.TeamMember{{Name: "alice", Role: "lead"}, {Name: "erin", Role: "qa"}}},
		Source:     src,
		Clock:      clock,
		MaxAlerts:  50,
		Collectors: coll,
	})
	require.NoError(t, err)
	return fixture{b: b, clock: clock, src: src, coll: coll}
}

func TestNew_RequiresPlan(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNew_InitialSnapshot(t *testing.T) {
	f := newFixture(t)
	s := f.b.Snapshot()

	assert.Equal(t, models.HealthHealthy, s.Health)
	assert.Equal(t, models.PhaseProgress{CurrentDay: 1, DaysRemaining: 17, Percent: 5}, s.Phase)
	assert.Equal(t, models.TaskCounters{Total: 3}, s.Tasks)
	assert.NotNil(t, s.Alerts)
	assert.Empty(t, s.Alerts)
}

func TestNew_CompletedSeedCapped(t *testing.T) {
	b, err := New(Options{Plan: testPlan(t), Completed: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Snapshot().Tasks.Completed)
}

func TestSubscribe_SendsInitialSnapshot(t *testing.T) {
	f := newFixture(t)
	o := newObserver("a")

	require.NoError(t, f.b.Subscribe(o))

	msgs := o.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageInitial, msgs[0].Type)
	assert.Nil(t, msgs[0].Timestamp)
	assert.Equal(t, f.b.Snapshot(), msgs[0].Data)
	assert.Equal(t, 1, f.b.ObserverCount())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.coll.Observers))
}

func TestSubscribe_FailedInitialNotAdded(t *testing.T) {
	f := newFixture(t)
	o := newObserver("a")
	o.failAfter = 0

	assert.Error(t, f.b.Subscribe(o))
	assert.Equal(t, 0, f.b.ObserverCount())
}

func TestBroadcastUpdate_NoObservers(t *testing.T) {
	f := newFixture(t)

	sent, failed := f.b.BroadcastUpdate(f.clock.Now())

	assert.Zero(t, sent)
	assert.Zero(t, failed)
	assert.Equal(t, float64(0), testutil.ToFloat64(f.coll.Broadcasts))
}

func TestBroadcastUpdate_MergedPayload(t *testing.T) {
	f := newFixture(t)
	o := newObserver("a")
	require.NoError(t, f.b.Subscribe(o))
	now := f.clock.Now()

	sent, failed := f.b.BroadcastUpdate(now)
	require.Equal(t, 1, sent)
	require.Zero(t, failed)

	msgs := o.messages()
	require.Len(t, msgs, 2)
	update := msgs[1]
	assert.Equal(t, models.MessageUpdate, update.Type)
	require.NotNil(t, update.Timestamp)
	assert.True(t, update.Timestamp.Equal(now))

	payload, ok := update.Data.(models.UpdatePayload)
	require.True(t, ok, "update data is %T", update.Data)
	assert.Equal(t, 3, payload.Status.Tasks.Total)
	assert.Equal(t, "0", payload.Metrics.SuccessRate)
	require.Len(t, payload.Team, 3)
	assert.Equal(t, "alice", payload.Team[0].Name)
	assert.Equal(t, "active", payload.Team[0].State)
	assert.Equal(t, []string{"1.1"}, payload.Team[0].TasksToday)
	assert.Equal(t, "idle", payload.Team[1].State)
	assert.Equal(t, "bob", payload.Team[2].Name)
}

func TestBroadcastUpdate_PrunesFailedObservers(t *testing.T) {
	f := newFixture(t)
	good, bad := newObserver("good"), newObserver("bad")
	bad.failAfter = 1
	require.NoError(t, f.b.Subscribe(good))
	require.NoError(t, f.b.Subscribe(bad))

	sent, failed := f.b.BroadcastUpdate(f.clock.Now())

	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, f.b.ObserverCount())
	assert.True(t, bad.closed)
	assert.False(t, good.closed)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.coll.DeliveryFailures))

	// The pruned observer is not retried.
	sent, failed = f.b.BroadcastUpdate(f.clock.Now())
	assert.Equal(t, 1, sent)
	assert.Zero(t, failed)
	assert.Len(t, bad.messages(), 1)
}

func TestUnsubscribe(t *testing.T) {
	f := newFixture(t)
	o := newObserver("a")
	require.NoError(t, f.b.Subscribe(o))

	f.b.Unsubscribe("a")
	f.b.Unsubscribe("missing")

	assert.Equal(t, 0, f.b.ObserverCount())
	assert.False(t, o.closed)
}

func TestPerturbHealth(t *testing.T) {
	tests := []struct {
		name      string
		draws     []float64
		want      models.Health
		wantLevel models.AlertLevel
	}{
		{"no change", []float64{0.5}, models.HealthHealthy, ""},
		{"same state", []float64{0.05, 0.1}, models.HealthHealthy, ""},
		{"to warning", []float64{0.05, 0.5}, models.HealthWarning, models.AlertWarning},
		{"to error", []float64{0.05, 0.9}, models.HealthError, models.AlertError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.draws...)
			f.b.PerturbHealth(f.clock.Now())

			assert.Equal(t, tt.want, f.b.Health())
			alerts := f.b.Alerts()
			if tt.wantLevel == "" {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.wantLevel, alerts[0].Level)
			assert.Equal(t, "health-monitor", alerts[0].Component)
			assert.Len(t, alerts[0].ID, 36)
			assert.Equal(t, float64(1), testutil.ToFloat64(f.coll.HealthTransitions.WithLabelValues(string(tt.want))))
		})
	}
}

func TestPerturbHealth_RecoveryHasNoAlert(t *testing.T) {
	f := newFixture(t, 0.05, 0.5, 0.05, 0.0)
	f.b.PerturbHealth(f.clock.Now())
	f.b.PerturbHealth(f.clock.Now())

	assert.Equal(t, models.HealthHealthy, f.b.Health())
	assert.Len(t, f.b.Alerts(), 1)
}

func TestSimulateProgress_CappedAtTotal(t *testing.T) {
	f := newFixture(t, 0.1)
	for i := 0; i < 5; i++ {
		f.b.SimulateProgress(f.clock.Now())
	}

	s := f.b.Snapshot()
	assert.Equal(t, 3, s.Tasks.Completed)
	require.Len(t, s.Alerts, 3)
	assert.Equal(t, models.AlertInfo, s.Alerts[0].Level)
	assert.Equal(t, "progress: 3 of 3 tasks completed", s.Alerts[0].Message)
}

func TestSimulateProgress_NoDrawNoChange(t *testing.T) {
	f := newFixture(t, 0.9)
	f.b.SimulateProgress(f.clock.Now())

	assert.Zero(t, f.b.Snapshot().Tasks.Completed)
	assert.Empty(t, f.b.Alerts())
}

func TestAlerts_BoundedNewestFirst(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 60; i++ {
		f.b.AddAlerts(models.Alert{ID: fmt.Sprintf("a%d", i)})
	}

	alerts := f.b.Alerts()
	require.Len(t, alerts, 50)
	for i, a := range alerts {
		assert.Equal(t, fmt.Sprintf("a%d", 59-i), a.ID)
	}
	assert.Equal(t, float64(50), testutil.ToFloat64(f.coll.AlertsRetained))
}

func TestSink_FeedsSnapshot(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.b.NotifyTask(models.TaskNotification{TaskID: "1.1", Status: models.StatusCompleted}))
	require.NoError(t, f.b.NotifyTask(models.TaskNotification{TaskID: "1.2", Status: models.StatusFailed}))
	require.NoError(t, f.b.NotifyTask(models.TaskNotification{TaskID: "1.3", Status: models.StatusBlocked}))
	require.NoError(t, f.b.NotifyDay(models.DayNotification{Date: "2025-01-06", TasksToday: 3, SuccessRate: "33.3", Efficiency: 40}))
	require.NoError(t, f.b.NotifyAlerts([]models.Alert{{ID: "failed-1.2"}}))

	s := f.b.Snapshot()
	assert.Equal(t, models.TaskCounters{Total: 3, Completed: 1, Failed: 1, Blocked: 1}, s.Tasks)
	assert.Equal(t, "failed-1.2", s.Alerts[0].ID)

	m := f.b.Metrics()
	assert.Equal(t, "2025-01-06", m.LastReportDate)
	assert.Equal(t, "33.3", m.SuccessRate)
}

func TestSink_CountsLatestOutcomePerTask(t *testing.T) {
	f := newFixture(t)
	notify := func(id string, status models.ExecutionStatus) {
		require.NoError(t, f.b.NotifyTask(models.TaskNotification{TaskID: id, Status: status}))
	}

	notify("1.1", models.StatusFailed)
	notify("1.1", models.StatusFailed)
	notify("1.2", models.StatusBlocked)
	assert.Equal(t, models.TaskCounters{Total: 3, Failed: 1, Blocked: 1}, f.b.Snapshot().Tasks)

	notify("1.1", models.StatusCompleted)
	notify("1.2", models.StatusCompleted)
	notify("1.1", models.StatusCompleted)
	assert.Equal(t, models.TaskCounters{Total: 3, Completed: 2}, f.b.Snapshot().Tasks)
}

func TestNew_CompletedIDsNotCountedTwice(t *testing.T) {
	b, err := New(Options{Plan: testPlan(t), CompletedIDs: []string{"1.1", "1.2", "1.1"}})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Snapshot().Tasks.Completed)

	require.NoError(t, b.NotifyTask(models.TaskNotification{TaskID: "1.1", Status: models.StatusCompleted}))
	assert.Equal(t, 2, b.Snapshot().Tasks.Completed)

	require.NoError(t, b.NotifyTask(models.TaskNotification{TaskID: "1.3", Status: models.StatusCompleted}))
	assert.Equal(t, 3, b.Snapshot().Tasks.Completed)
}

func TestMetrics_FromLatestReport(t *testing.T) {
	reports := &memReports{}
	b, err := New(Options{Plan: testPlan(t), Reports: reports})
	require.NoError(t, err)
	require.NoError(t, reports.Save(models.DailyReport{
		Date:        "2025-01-07",
		Summary:     models.ReportSummary{Total: 4, Completed: 3, SuccessRate: "75.0"},
		Performance: models.ReportPerformance{TotalTimeMinutes: 1, AverageTimeSeconds: 5, Efficiency: 83},
	}))

	assert.Equal(t, models.LiveMetrics{
		LastReportDate:     "2025-01-07",
		TasksToday:         4,
		SuccessRate:        "75.0",
		Efficiency:         83,
		TotalTimeMinutes:   1,
		AverageTimeSeconds: 5,
	}, b.Metrics())
}

func TestRegister_JobsOnScheduler(t *testing.T) {
	f := newFixture(t, 0.9)
	s := schedule.New(f.clock, nil)
	o := newObserver("a")
	require.NoError(t, f.b.Subscribe(o))

	require.NoError(t, f.b.Register(s, models.BroadcastConfig{
		UpdateInterval:   10 * time.Second,
		HealthInterval:   60 * time.Second,
		ProgressInterval: 30 * time.Second,
	}))
	assert.Equal(t, []string{JobUpdate, JobHealth, JobProgress}, s.Jobs())

	for i := 0; i < 6; i++ {
		f.clock.Advance(10 * time.Second)
		s.RunDue(f.clock.Now())
	}

	assert.Equal(t, 6, s.Ticks(JobUpdate))
	assert.Equal(t, 1, s.Ticks(JobHealth))
	assert.Equal(t, 2, s.Ticks(JobProgress))
	assert.Len(t, o.messages(), 7)
}

func TestRegister_SuspendedJobsRunOnce(t *testing.T) {
	f := newFixture(t, 0.9, 0.9)
	s := schedule.New(f.clock, nil)
	o := newObserver("a")
	require.NoError(t, f.b.Subscribe(o))
	require.NoError(t, f.b.Register(s, models.BroadcastConfig{
		UpdateInterval:   10 * time.Second,
		HealthInterval:   60 * time.Second,
		ProgressInterval: 30 * time.Second,
	}))

	f.clock.Advance(time.Hour)
	runs := s.RunDue(f.clock.Now())

	assert.Equal(t, 3, runs)
	assert.Len(t, o.messages(), 2, "initial snapshot plus one update")
}

func TestPhase_AdvancesWithoutObservers(t *testing.T) {
	f := newFixture(t)
	s := schedule.New(f.clock, nil)
	require.NoError(t, f.b.Register(s, models.BroadcastConfig{
		UpdateInterval:   10 * time.Second,
		HealthInterval:   time.Hour,
		ProgressInterval: time.Hour,
	}))

	f.clock.Advance(24 * time.Hour)
	s.RunDue(f.clock.Now())
	assert.Equal(t, 2, f.b.Snapshot().Phase.CurrentDay)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.coll.PhaseDay))
	assert.Equal(t, []string{"1.3"}, f.b.Team()[0].TasksToday)

	f.clock.Advance(48 * time.Hour)
	s.RunDue(f.clock.Now())
	snap := f.b.Snapshot()
	assert.Equal(t, 4, snap.Phase.CurrentDay)
	assert.Equal(t, 14, snap.Phase.DaysRemaining)
	assert.Equal(t, 4.0, testutil.ToFloat64(f.coll.PhaseDay))
	for _, m := range f.b.Team() {
		assert.Equal(t, "idle", m.State, m.Name)
	}
}

func TestSnapshot_ReadsPhaseFromClock(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(72 * time.Hour)

	assert.Equal(t, 4, f.b.Snapshot().Phase.CurrentDay)
}

func TestRegister_InvalidInterval(t *testing.T) {
	f := newFixture(t)
	err := f.b.Register(schedule.New(f.clock, nil), models.BroadcastConfig{})
	assert.Error(t, err)
}
