package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"
)

// LedgerFileName is the default file name of the completion ledger.
const LedgerFileName = "ledger.json"

// LedgerEntry records when a task was first completed.
type LedgerEntry struct {
	TaskID      string    `json:"taskId"`
	CompletedAt time.Time `json:"completedAt"`
}

type ledgerFile struct {
	Completed []LedgerEntry `json:"completed"`
}

// Ledger is the persisted set of completed task ids. It backs the default
// dependency oracle across runs.
type Ledger interface {
	IsCompleted(taskID string) bool
	MarkCompleted(taskID string, at time.Time) error
	Entries() []LedgerEntry
}

type fileLedger struct {
	path string
	mu   sync.RWMutex
	done map[string]time.Time
}

// NewMemoryLedger returns an empty ledger that is never persisted.
func NewMemoryLedger() Ledger {
	return &fileLedger{done: make(map[string]time.Time)}
}

// NewLedger opens the ledger at path. A missing file yields an empty ledger.
func NewLedger(path string) (Ledger, error) {
	l := &fileLedger{path: path, done: make(map[string]time.Time)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	var f ledgerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", path, err)
	}
	for _, e := range f.Completed {
		l.done[e.TaskID] = e.CompletedAt
	}
	return l, nil
}

func (l *fileLedger) IsCompleted(taskID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.done[taskID]
	return ok
}

// MarkCompleted records a completion and persists the ledger. The first
// completion time of a task is kept.
func (l *fileLedger) MarkCompleted(taskID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.done[taskID]; ok {
		return nil
	}
	l.done[taskID] = at.UTC()
	if l.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(ledgerFile{Completed: l.entriesLocked()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := writeFileAtomic(l.path, append(data, '\n'), 0o644); err != nil {
		delete(l.done, taskID)
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

// Entries returns the completions sorted by task id.
func (l *fileLedger) Entries() []LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entriesLocked()
}

func (l *fileLedger) entriesLocked() []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(l.done))
	for id, at := range l.done {
		entries = append(entries, LedgerEntry{TaskID: id, CompletedAt: at})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TaskID < entries[j].TaskID })
	return entries
}
