package orchestrator

import (
	"sync"
	"time"
)

// DefaultTransitionLogLimit bounds the transition log when no limit is set.
const DefaultTransitionLogLimit = 20

// TransitionEntry is one diagnostic log line.
type TransitionEntry struct {
	From  string        `json:"from"`
	To    string        `json:"to"`
	Event string        `json:"event"`
	At    time.Duration `json:"at"`
}

// TransitionLog keeps the most recent transitions; the oldest entry is
// evicted once the limit is reached.
type TransitionLog struct {
	mu      sync.RWMutex
	limit   int
	entries []TransitionEntry
}

// NewTransitionLog creates a log holding at most limit entries.
func NewTransitionLog(limit int) *TransitionLog {
	if limit <= 0 {
		limit = DefaultTransitionLogLimit
	}
	return &TransitionLog{limit: limit, entries: make([]TransitionEntry, 0, limit)}
}

func (l *TransitionLog) Add(e TransitionEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == l.limit {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.limit-1]
	}
	l.entries = append(l.entries, e)
}

// Entries returns the log oldest first.
func (l *TransitionLog) Entries() []TransitionEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]TransitionEntry(nil), l.entries...)
}

func (l *TransitionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
