package syncer

import (
	"sync"
	"time"
)

// DefaultOpLogSize is how many recent operations the synchronizer keeps
// for diagnostics.
const DefaultOpLogSize = 128

// OpKind is the type of a recorded operation.
type OpKind string

const (
	// OpSave records a save/upsert.
	OpSave OpKind = "save"
	// OpDelete records a delete.
	OpDelete OpKind = "delete"
)

// OpEntry is one recorded synchronizer operation.
type OpEntry struct {
	Kind       OpKind    `json:"kind"`
	Collection string    `json:"collection"`
	DocID      string    `json:"doc_id"`
	At         time.Time `json:"at"`
	Err        string    `json:"err,omitempty"`
}

// OpLog is a fixed-size ring of recent operations. It exists purely for
// the status/health surfaces; nothing in the data path reads it.
type OpLog struct {
	mu      sync.Mutex
	entries []OpEntry
	next    int
	full    bool
}

// NewOpLog creates a ring holding up to size entries.
func NewOpLog(size int) *OpLog {
	if size <= 0 {
		size = DefaultOpLogSize
	}
	return &OpLog{entries: make([]OpEntry, size)}
}

// Record appends an operation outcome.
func (l *OpLog) Record(kind OpKind, collection, docID string, err error) {
	entry := OpEntry{
		Kind:       kind,
		Collection: collection,
		DocID:      docID,
		At:         time.Now(),
	}
	if err != nil {
		entry.Err = err.Error()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = entry
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

// Recent returns recorded operations, newest first.
func (l *OpLog) Recent() []OpEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.next
	if l.full {
		count = len(l.entries)
	}
	out := make([]OpEntry, 0, count)
	for i := 1; i <= count; i++ {
		idx := (l.next - i + len(l.entries)) % len(l.entries)
		out = append(out, l.entries[idx])
	}
	return out
}
