package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Timers is the minimal surface of a host timer facility: something that can
// set and clear a timeout and report its clock.
type Timers interface {
	SetTimeout(fn func(), delay time.Duration) any
	ClearTimeout(id any)
	Now() time.Duration
}

type timerEntry struct {
	id  any
	set bool
}

type timersAdapter struct {
	timers Timers
	logger zerolog.Logger

	mu      sync.Mutex
	next    Handle
	entries map[Handle]*timerEntry
}

// FromTimers wraps a host timer facility in the Scheduler contract so callers
// never special-case it.
func FromTimers(t Timers, logger zerolog.Logger) Scheduler {
	return &timersAdapter{
		timers:  t,
		logger:  logger.With().Str("component", "scheduler").Str("mode", "adapter").Logger(),
		entries: make(map[Handle]*timerEntry),
	}
}

func (a *timersAdapter) Schedule(fn func(), delay time.Duration) Handle {
	a.mu.Lock()
	a.next++
	h := a.next
	a.entries[h] = &timerEntry{}
	a.mu.Unlock()

	id := a.timers.SetTimeout(func() {
		a.mu.Lock()
		_, pending := a.entries[h]
		delete(a.entries, h)
		a.mu.Unlock()
		if !pending {
			return
		}
		run(a.logger, h, fn)
	}, normalizeDelay(delay))

	// Hosts that fire synchronously have already removed the entry.
	a.mu.Lock()
	if e, ok := a.entries[h]; ok {
		e.id = id
		e.set = true
	}
	a.mu.Unlock()
	return h
}

func (a *timersAdapter) Cancel(h Handle) {
	a.mu.Lock()
	e, ok := a.entries[h]
	delete(a.entries, h)
	a.mu.Unlock()
	if ok && e.set {
		a.timers.ClearTimeout(e.id)
	}
}

func (a *timersAdapter) Now() time.Duration {
	return a.timers.Now()
}
