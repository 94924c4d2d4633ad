package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Immediate runs every callback synchronously inside Schedule. Its clock is
// the number of callbacks scheduled so far, in milliseconds.
type Immediate struct {
	mu      sync.Mutex
	counter uint64
	logger  zerolog.Logger
}

// NewImmediate creates a headless scheduler that never waits.
func NewImmediate(logger zerolog.Logger) *Immediate {
	return &Immediate{
		logger: logger.With().Str("component", "scheduler").Str("mode", string(ModeImmediate)).Logger(),
	}
}

func (s *Immediate) Schedule(fn func(), _ time.Duration) Handle {
	s.mu.Lock()
	s.counter++
	h := Handle(s.counter)
	s.mu.Unlock()

	run(s.logger, h, fn)
	return h
}

// Cancel is a no-op: the callback already ran.
func (s *Immediate) Cancel(Handle) {}

func (s *Immediate) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.counter) * time.Millisecond
}
