// Package cyclelog keeps a bounded history of scheduler cycle records,
// persisted as JSON through the datastore so a restart keeps recent health
// context.
package cyclelog

import (
	"context"
	"log"
	"sync"

	"github.com/keshon/datastore"

	"kindred/internal/model"
)

const (
	recordsKey = "cycle_records"
	// MaxRecords is the retained window of recent cycles.
	MaxRecords = 50
)

// Log is a typed wrapper over the datastore: whole-slice reads and writes
// under one key.
type Log struct {
	ds *datastore.DataStore
	// cancel stops the store's autosave goroutine; Close blocks on it.
	cancel context.CancelFunc

	mu sync.Mutex
	// recent is authoritative at runtime; the datastore holds the snapshot.
	recent []*model.CycleRecord
}

// Handle lets the dispatch path update its cycle's counters after the record
// was appended (delayed executions finish long after the cycle itself).
type Handle struct {
	log *Log
	rec *model.CycleRecord
}

func New(filePath string) (*Log, error) {
	ctx, cancel := context.WithCancel(context.Background())
	ds, err := datastore.New(ctx, filePath)
	if err != nil {
		cancel()
		return nil, err
	}
	l := &Log{ds: ds, cancel: cancel}
	l.load()
	return l, nil
}

// Close cancels the autosave goroutine first: the store's Close waits for it
// and would block forever on a live context.
func (l *Log) Close() error {
	l.cancel()
	return l.ds.Close()
}

func (l *Log) load() {
	var recs []*model.CycleRecord
	if ok, err := l.ds.Get(recordsKey, &recs); !ok || err != nil {
		return
	}
	l.recent = recs
}

func (l *Log) persistLocked() {
	snapshot := make([]model.CycleRecord, len(l.recent))
	for i, r := range l.recent {
		snapshot[i] = *r
	}
	if err := l.ds.Set(recordsKey, snapshot); err != nil {
		log.Printf("[ENGAGE] cycle history persist failed: %v", err)
	}
}

// Append stores a new cycle record, evicting beyond the retained window, and
// returns a handle for late counter updates.
func (l *Log) Append(rec model.CycleRecord) *Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := &rec
	l.recent = append(l.recent, r)
	if len(l.recent) > MaxRecords {
		l.recent = l.recent[len(l.recent)-MaxRecords:]
	}
	l.persistLocked()
	return &Handle{log: l, rec: r}
}

// Recent returns up to n records, newest last.
func (l *Log) Recent(n int) []model.CycleRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.recent) {
		n = len(l.recent)
	}
	out := make([]model.CycleRecord, 0, n)
	for _, r := range l.recent[len(l.recent)-n:] {
		out = append(out, *r)
	}
	return out
}

// Summary totals the retained window for health reporting.
func (l *Log) Summary() (cycles, executed, errors int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.recent {
		cycles++
		executed += r.Executed
		errors += r.Errors
	}
	return
}

// MarkExecuted bumps the cycle's executed count once a dispatch completed.
func (h *Handle) MarkExecuted() {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	h.rec.Executed++
	h.log.persistLocked()
}

// MarkError bumps the cycle's error count.
func (h *Handle) MarkError() {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	h.rec.Errors++
	h.log.persistLocked()
}

// Finalize stamps the cycle end (called once when scan/dispatch scheduling
// finished; delayed executions may still update counters afterwards).
func (h *Handle) Finalize(rec model.CycleRecord) {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	h.rec.EndedAt = rec.EndedAt
	h.rec.CandidatesFound = rec.CandidatesFound
	h.rec.Partial = rec.Partial
	h.log.persistLocked()
}

// Record returns a copy of the handle's current record.
func (h *Handle) Record() model.CycleRecord {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	return *h.rec
}
