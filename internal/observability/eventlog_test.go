package observability

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestLog(t *testing.T) EventLog {
	t.Helper()
	log, err := NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func settled(id, owner, status string, seconds float64) map[string]any {
	return map[string]any{
		"task_id":          id,
		"owner":            owner,
		"status":           status,
		"day":              1,
		"duration_seconds": seconds,
	}
}

func TestEventLog_WriteAndRead(t *testing.T) {
	log := newTestLog(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	events := []Event{
		{Time: now, Level: LevelInfo, Type: EventTaskSettled, Message: "task 1.1 completed", Data: settled("1.1", "alice", "completed", 3)},
		{Time: now.Add(time.Second), Level: LevelInfo, Type: EventCycleCompleted, Message: "day 1 cycle completed"},
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result))
	}
	if result[0].Type != EventTaskSettled || result[0].Data["task_id"] != "1.1" {
		t.Errorf("result[0] = %+v", result[0])
	}
	if !result[1].Time.Equal(now.Add(time.Second)) {
		t.Errorf("time = %s, want %s", result[1].Time, now.Add(time.Second))
	}
}

func TestEventLog_LogEventDerivesLevel(t *testing.T) {
	log := newTestLog(t)

	_ = log.LogEvent(EventTaskSettled, settled("1.1", "alice", "completed", 3))
	_ = log.LogEvent(EventTaskSettled, settled("1.2", "bob", "failed", 4))
	_ = log.LogEvent(EventTaskSettled, settled("1.3", "carol", "blocked", 0))
	_ = log.LogEvent(EventCycleCompleted, map[string]any{"day": 1, "tasks": 3})

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	want := []string{LevelInfo, LevelError, LevelWarn, LevelInfo}
	for i, level := range want {
		if result[i].Level != level {
			t.Errorf("event %d level = %s, want %s", i, result[i].Level, level)
		}
		if result[i].Time.IsZero() {
			t.Errorf("event %d not timestamped", i)
		}
	}
	if result[1].Message != "task 1.2 failed" {
		t.Errorf("message = %q", result[1].Message)
	}
	if result[3].Message != "day 1 cycle completed" {
		t.Errorf("message = %q", result[3].Message)
	}
}

func TestEventLog_FilterByType(t *testing.T) {
	log := newTestLog(t)

	_ = log.LogEvent(EventTaskSettled, settled("1.1", "alice", "completed", 3))
	_ = log.LogEvent(EventCycleCompleted, map[string]any{"day": 1})
	_ = log.LogEvent(EventTaskSettled, settled("1.4", "alice", "completed", 2))

	result, err := log.Read(EventFilter{Type: EventTaskSettled})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 settled events, got %d", len(result))
	}
}

func TestEventLog_FilterByTimeRange(t *testing.T) {
	log := newTestLog(t)

	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	for i, msg := range []string{"first", "second", "third", "fourth"} {
		e := Event{Time: base.Add(time.Duration(i) * time.Hour), Level: LevelInfo, Type: EventCycleCompleted, Message: msg}
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	since := base.Add(30 * time.Minute)
	until := base.Add(2*time.Hour + 30*time.Minute)
	result, err := log.Read(EventFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 || result[0].Message != "second" || result[1].Message != "third" {
		t.Fatalf("unexpected range result: %+v", result)
	}
}

func TestEventLog_FilterByLevel(t *testing.T) {
	log := newTestLog(t)

	_ = log.LogEvent(EventTaskSettled, settled("1.1", "alice", "blocked", 0))
	_ = log.LogEvent(EventTaskSettled, settled("1.2", "bob", "completed", 4))
	_ = log.LogEvent(EventTaskSettled, settled("1.3", "carol", "blocked", 0))

	result, err := log.Read(EventFilter{Level: LevelWarn})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 WARN events, got %d", len(result))
	}
}

func TestEventLog_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, []byte("not json\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()
	_ = log.LogEvent(EventCycleCompleted, map[string]any{"day": 2})

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("expected 1 valid event, got %d", len(result))
	}
}

func TestEventLog_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log in missing directory: %v", err)
	}
	_ = log.Close()
}

func TestEventLog_EmptyLog(t *testing.T) {
	log := newTestLog(t)

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading empty log: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected 0 events from empty log, got %d", len(result))
	}
}

func TestEventLog_ConcurrentWrites(t *testing.T) {
	log := newTestLog(t)

	const goroutines = 10
	const eventsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < eventsPerGoroutine; i++ {
				if err := log.LogEvent(EventTaskSettled, map[string]any{"goroutine": id, "index": i}); err != nil {
					t.Errorf("concurrent write error: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events after concurrent writes: %v", err)
	}
	if expected := goroutines * eventsPerGoroutine; len(result) != expected {
		t.Errorf("expected %d events, got %d", expected, len(result))
	}
}
