package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RealTime schedules callbacks on the runtime timer. Callbacks run on timer
// goroutines.
type RealTime struct {
	mu     sync.Mutex
	next   Handle
	timers map[Handle]*time.Timer
	origin time.Time
	logger zerolog.Logger
}

// NewRealTime creates a wall-clock scheduler.
func NewRealTime(logger zerolog.Logger) *RealTime {
	return &RealTime{
		timers: make(map[Handle]*time.Timer),
		origin: time.Now(),
		logger: logger.With().Str("component", "scheduler").Str("mode", string(ModeRealTime)).Logger(),
	}
}

func (s *RealTime) Schedule(fn func(), delay time.Duration) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := s.next
	// The callback takes s.mu, so it cannot observe the map before the
	// timer is stored even with a zero delay.
	s.timers[h] = time.AfterFunc(normalizeDelay(delay), func() {
		s.mu.Lock()
		_, pending := s.timers[h]
		delete(s.timers, h)
		s.mu.Unlock()
		if !pending {
			return
		}
		run(s.logger, h, fn)
	})
	return h
}

func (s *RealTime) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
}

func (s *RealTime) Now() time.Duration {
	return time.Since(s.origin)
}

// Pending returns the number of callbacks that have not fired yet.
func (s *RealTime) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending callback.
func (s *RealTime) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, t := range s.timers {
		t.Stop()
		delete(s.timers, h)
	}
}
