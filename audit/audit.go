// Package audit records how each field classification was reached.
package audit

import (
	"context"
	"sync"
	"time"

	q "github.com/teranos/qntx-astro/quantity"
)

// Stage names the pipeline step that produced an entry.
type Stage string

const (
	StageSynthetic Stage = "synthetic"
	StageMerge     Stage = "merge"
)

// Entry is one audited decision.
type Entry struct {
	RunID      string             `json:"runId"`
	Dataset    string             `json:"dataset"`
	Field      string             `json:"field"`
	Stage      Stage              `json:"stage"`
	Source     q.Provenance       `json:"source"`
	Rule       string             `json:"rule,omitempty"`
	Quantity   q.PhysicalQuantity `json:"quantity"`
	Confidence float64            `json:"confidence"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Log is an append-only, concurrency-safe collection of entries.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append stamps entries lacking a timestamp and stores them.
func (l *Log) Append(entries ...Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = l.now().UTC()
		}
		l.entries = append(l.entries, e)
	}
}

// Entries returns a copy of the recorded entries.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Query narrows a store listing. Zero values match everything.
type Query struct {
	Dataset string
	RunID   string
	Field   string
	Limit   int
}

// Store persists audit entries beyond a single run.
type Store interface {
	Record(ctx context.Context, entries []Entry) error
	List(ctx context.Context, query Query) ([]Entry, error)
}
