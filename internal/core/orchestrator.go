package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valter-silva-au/phaseops/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/valter-silva-au/phaseops/internal/core"

// Clock supplies the current time and blocks for pacing.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// EventLogger is the subset of the observability event log that the
// orchestrator needs. Defining it here avoids importing observability.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// ExecutionRecorder receives settled tasks and cycles for metrics.
type ExecutionRecorder interface {
	ObserveTask(result models.TaskResult, category string)
	ObserveCycle(report models.DailyReport)
}

// OrchestratorOptions collects the collaborators of an Orchestrator. Plan,
// Calendar, Gate, Simulator, Aggregator and Clock are required.
type OrchestratorOptions struct {
	Plan       *PlanRepository
	Calendar   Calendar
	Gate       *DependencyGate
	Simulator  *Simulator
	Aggregator *ReportAggregator
	Clock      Clock
	// Pause is the interval between two consecutive tasks.
	Pause    time.Duration
	Ledger   CompletionLedger
	Sink     NotificationSink
	Events   EventLogger
	Recorder ExecutionRecorder
	Logger   *slog.Logger
	Tracer   trace.Tracer
}

// Orchestrator drives one daily cycle: select, gate, execute, pace, collect,
// report and notify. Tasks run strictly one after another in selection
// order.
type Orchestrator struct {
	opts OrchestratorOptions
}

// CycleOutcome is the result of one full daily cycle.
type CycleOutcome struct {
	Date    time.Time
	Day     int
	Results []models.TaskResult
	Report  models.DailyReport
}

// NewOrchestrator validates opts and creates an Orchestrator.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	switch {
	case opts.Plan == nil:
		return nil, fmt.Errorf("orchestrator requires a plan repository")
	case opts.Gate == nil:
		return nil, fmt.Errorf("orchestrator requires a dependency gate")
	case opts.Simulator == nil:
		return nil, fmt.Errorf("orchestrator requires a simulator")
	case opts.Aggregator == nil:
		return nil, fmt.Errorf("orchestrator requires a report aggregator")
	case opts.Clock == nil:
		return nil, fmt.Errorf("orchestrator requires a clock")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	return &Orchestrator{opts: opts}, nil
}

// Today returns the day index for the current time.
func (o *Orchestrator) Today() int {
	return o.opts.Calendar.DayIndex(o.opts.Clock.Now())
}

// RunCycle runs the cycle for today's day index.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleOutcome, error) {
	return o.RunCycleForDay(ctx, o.Today())
}

// RunCycleForDay runs all tasks of day, then publishes the daily report. The
// report is published only after every task has settled. Only a persistence
// failure or an unexpected panic returns an error; in both cases one
// best-effort failure notification is attempted first. ctx carries tracing
// only: an in-flight cycle cannot be cancelled.
func (o *Orchestrator) RunCycleForDay(ctx context.Context, day int) (out CycleOutcome, err error) {
	day = ClampDay(day, o.opts.Plan.Horizon())
	out = CycleOutcome{Date: o.opts.Clock.Now(), Day: day}

	ctx, span := o.opts.Tracer.Start(ctx, "daily-cycle", trace.WithAttributes(
		attribute.Int("phase.day", day),
		attribute.Int("phase.week", WeekForDay(day)),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("orchestrator panic on day %d: %v", day, r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.notifyFailure(err)
		}
	}()

	out.Results = o.RunDay(ctx, day)

	o.logEvent("cycle.completed", map[string]any{
		"day":   day,
		"tasks": len(out.Results),
	})

	out.Report, err = o.opts.Aggregator.Publish(out.Date, day, out.Results)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.notifyFailure(err)
		return out, err
	}
	if o.opts.Recorder != nil {
		o.opts.Recorder.ObserveCycle(out.Report)
	}
	return out, nil
}

// RunDay processes the tasks scheduled for day in selection order and returns
// one result per task. A failing or blocked task never stops the others.
func (o *Orchestrator) RunDay(ctx context.Context, day int) []models.TaskResult {
	tasks := o.opts.Plan.TasksForDay(day)
	o.opts.Logger.Info("starting daily cycle", "day", day, "week", WeekForDay(day), "tasks", len(tasks))

	results := make([]models.TaskResult, 0, len(tasks))
	for i, task := range tasks {
		result, category := o.runTask(ctx, task)
		results = append(results, result)

		o.opts.Logger.Info("task settled",
			"task_id", result.TaskID,
			"owner", result.Owner,
			"status", result.Status,
			"duration_seconds", result.DurationSeconds,
		)
		o.logEvent("task.settled", map[string]any{
			"task_id":          result.TaskID,
			"owner":            result.Owner,
			"status":           string(result.Status),
			"day":              day,
			"duration_seconds": result.DurationSeconds,
		})
		if o.opts.Recorder != nil {
			o.opts.Recorder.ObserveTask(result, category)
		}
		if o.opts.Sink != nil {
			if err := o.opts.Sink.NotifyTask(models.NotificationFor(result)); err != nil {
				o.opts.Logger.Warn("task notification failed", "task_id", result.TaskID, "error", err)
			}
		}

		if i < len(tasks)-1 && o.opts.Pause > 0 {
			o.opts.Clock.Sleep(o.opts.Pause)
		}
	}
	return results
}

// runTask takes one task from pending to a settled state.
func (o *Orchestrator) runTask(ctx context.Context, task models.ScheduledTask) (result models.TaskResult, category string) {
	_, span := o.opts.Tracer.Start(ctx, "task "+task.ID, trace.WithAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("task.owner", task.Owner),
	))
	defer span.End()

	result = models.TaskResult{
		TaskID:    task.ID,
		Name:      task.Name,
		Owner:     task.Owner,
		StartedAt: o.opts.Clock.Now(),
	}
	defer func() {
		span.SetAttributes(attribute.String("task.status", string(result.Status)))
		if result.Status != models.StatusCompleted {
			span.SetStatus(codes.Error, result.Message)
		}
	}()

	ready, err := o.opts.Gate.Ready(task.Deps)
	if err != nil || !ready {
		result.Status = models.StatusBlocked
		result.Message = "waiting on dependencies: " + strings.Join(task.Deps, ", ")
		if err != nil {
			result.Message = fmt.Sprintf("dependency check failed: %v", err)
		}
		result.EndedAt = result.StartedAt
		return result, ""
	}

	exec := o.execute(task.TaskDefinition)
	result.Status = exec.Status
	result.Message = exec.Message
	result.DurationSeconds = exec.Duration.Seconds()
	result.EndedAt = o.opts.Clock.Now()

	if result.Status == models.StatusCompleted && o.opts.Ledger != nil {
		if err := o.opts.Ledger.MarkCompleted(task.ID, result.EndedAt); err != nil {
			o.opts.Logger.Warn("recording completion failed", "task_id", task.ID, "error", err)
		}
	}
	return result, string(exec.Category)
}

// execute runs the simulator, turning a panic into a failed execution.
func (o *Orchestrator) execute(task models.TaskDefinition) (exec Execution) {
	defer func() {
		if r := recover(); r != nil {
			exec = Execution{
				Status:   models.StatusFailed,
				Message:  fmt.Sprintf("execution aborted: %v", r),
				Category: Classify(task.Name),
			}
		}
	}()
	return o.opts.Simulator.Run(task)
}

func (o *Orchestrator) notifyFailure(cause error) {
	if o.opts.Sink == nil {
		return
	}
	alert := models.Alert{
		ID:        fmt.Sprintf("cycle-failure-%d", o.opts.Clock.Now().Unix()),
		Level:     models.AlertError,
		Message:   "daily cycle aborted: " + cause.Error(),
		Component: "orchestrator",
		Timestamp: o.opts.Clock.Now(),
	}
	if err := o.opts.Sink.NotifyAlerts([]models.Alert{alert}); err != nil {
		o.opts.Logger.Error("failure notification failed", "error", err)
	}
}

func (o *Orchestrator) logEvent(eventType string, data map[string]any) {
	if o.opts.Events == nil {
		return
	}
	if err := o.opts.Events.LogEvent(eventType, data); err != nil {
		o.opts.Logger.Warn("event log write failed", "type", eventType, "error", err)
	}
}
