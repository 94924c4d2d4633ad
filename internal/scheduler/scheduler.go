// Package scheduler abstracts "run this callback after a delay" so match timing
// can run against the wall clock or against a logical clock driven by tests.
package scheduler

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Handle identifies a scheduled callback. The zero Handle is never issued.
type Handle uint64

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	// Schedule registers fn to run after delay. Negative delays run as soon as possible.
	Schedule(fn func(), delay time.Duration) Handle
	// Cancel prevents a pending callback from running. Cancelling a handle that
	// already fired or was already cancelled is a no-op.
	Cancel(h Handle)
	// Now reports the scheduler's clock, measured from its creation.
	Now() time.Duration
}

// Mode selects a Scheduler implementation.
type Mode string

const (
	ModeRealTime  Mode = "realtime"
	ModeImmediate Mode = "immediate"
	ModeVirtual   Mode = "virtual"
)

// ParseMode parses a scheduler mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRealTime:
		return ModeRealTime, nil
	case ModeImmediate:
		return ModeImmediate, nil
	case ModeVirtual:
		return ModeVirtual, nil
	default:
		return "", fmt.Errorf("unknown scheduler mode: %q", s)
	}
}

// New creates a scheduler for the given mode.
func New(mode Mode, logger zerolog.Logger) (Scheduler, error) {
	switch mode {
	case ModeRealTime, "":
		return NewRealTime(logger), nil
	case ModeImmediate:
		return NewImmediate(logger), nil
	case ModeVirtual:
		return NewVirtual(logger), nil
	default:
		return nil, fmt.Errorf("unknown scheduler mode: %q", mode)
	}
}

// FromMillis converts a millisecond count to a delay. NaN, infinite and
// negative values become zero.
func FromMillis(ms float64) time.Duration {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms <= 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

func normalizeDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// run invokes fn, recovering and logging a panic so one callback cannot take
// down the scheduler or the callbacks queued behind it.
func run(logger zerolog.Logger, h Handle, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Uint64("handle", uint64(h)).
				Interface("panic", r).
				Msg("scheduled callback panicked")
		}
	}()
	fn()
}
