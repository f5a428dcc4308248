// Package schedule runs named periodic jobs on an injectable clock. Jobs never
// run concurrently with each other, so a job may touch state shared with the
// other jobs of the same scheduler without further locking.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// JobFunc is the body of a periodic job. now is the clock time at which the
// job became due.
type JobFunc func(now time.Time)

type job struct {
	name   string
	period time.Duration
	fn     JobFunc
	next   time.Time
	ticks  int

	coalesce bool
}

// JobOption configures a job registered with Every.
type JobOption func(*job)

// Coalesce makes a job that fell several periods behind, for example after
// the process was suspended, run once for the latest missed tick instead of
// once per missed period.
func Coalesce() JobOption {
	return func(j *job) { j.coalesce = true }
}

// Scheduler owns a set of named periodic jobs.
type Scheduler struct {
	clock  clockwork.Clock
	logger *slog.Logger

	mu   sync.Mutex // guards jobs
	jobs []*job

	runMu sync.Mutex // serializes job execution
}

// New creates a Scheduler on clock. A nil clock uses the real clock.
func New(clock clockwork.Clock, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{clock: clock, logger: logger}
}

// Every registers fn to run once per period. The first run is due one
// period after registration.
func (s *Scheduler) Every(name string, period time.Duration, fn JobFunc, opts ...JobOption) error {
	if period <= 0 {
		return fmt.Errorf("job %q: period must be positive, got %s", name, period)
	}
	if fn == nil {
		return fmt.Errorf("job %q: nil function", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("job %q already registered", name)
		}
	}
	j := &job{
		name:   name,
		period: period,
		fn:     fn,
		next:   s.clock.Now().Add(period),
	}
	for _, opt := range opts {
		opt(j)
	}
	s.jobs = append(s.jobs, j)
	return nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.name
	}
	return names
}

// Ticks returns how many times the named job has run.
func (s *Scheduler) Ticks(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.name == name {
			return j.ticks
		}
	}
	return 0
}

// RunDue runs every job that is due at now, in registration order. A job
// that fell several periods behind runs once per missed period, unless it was
// registered with Coalesce. It returns the number of job runs.
func (s *Scheduler) RunDue(now time.Time) int {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	runs := 0
	for {
		j, due := s.nextDue(now)
		if j == nil {
			return runs
		}
		s.runJob(j, due)
		runs++
	}
}

// nextDue picks the job with the earliest due time not after now and
// advances its schedule.
func (s *Scheduler) nextDue(now time.Time) (*job, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var earliest *job
	for _, j := range s.jobs {
		if j.next.After(now) {
			continue
		}
		if behind := now.Sub(j.next); j.coalesce && behind >= j.period {
			j.next = j.next.Add(behind / j.period * j.period)
		}
		if earliest == nil || j.next.Before(earliest.next) {
			earliest = j
		}
	}
	if earliest == nil {
		return nil, time.Time{}
	}
	due := earliest.next
	earliest.next = earliest.next.Add(earliest.period)
	earliest.ticks++
	return earliest, due
}

func (s *Scheduler) runJob(j *job, due time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled job panicked", "job", j.name, "panic", r)
		}
	}()
	j.fn(due)
}

// Run runs due jobs until ctx is cancelled. It returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Debug("scheduler started", "jobs", s.Jobs())
	for {
		wait, ok := s.untilNext(s.clock.Now())
		if !ok {
			<-ctx.Done()
			return ctx.Err()
		}

		timer := s.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Debug("scheduler stopped")
			return ctx.Err()
		case <-timer.Chan():
			s.RunDue(s.clock.Now())
		}
	}
}

// untilNext returns the time left until the earliest due job.
func (s *Scheduler) untilNext(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) == 0 {
		return 0, false
	}
	next := s.jobs[0].next
	for _, j := range s.jobs[1:] {
		if j.next.Before(next) {
			next = j.next
		}
	}
	return max(next.Sub(now), 0), true
}
