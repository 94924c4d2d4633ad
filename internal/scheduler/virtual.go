package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type virtualEntry struct {
	id    Handle
	runAt time.Duration
	fn    func()
}

// Virtual queues callbacks against a simulated clock that only moves when
// AdvanceBy is called.
type Virtual struct {
	mu     sync.Mutex
	clock  time.Duration
	nextID Handle
	queue  map[Handle]*virtualEntry
	logger zerolog.Logger
}

// NewVirtual creates a headless scheduler with its clock at zero.
func NewVirtual(logger zerolog.Logger) *Virtual {
	return &Virtual{
		queue:  make(map[Handle]*virtualEntry),
		logger: logger.With().Str("component", "scheduler").Str("mode", string(ModeVirtual)).Logger(),
	}
}

func (s *Virtual) Schedule(fn func(), delay time.Duration) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.queue[s.nextID] = &virtualEntry{
		id:    s.nextID,
		runAt: s.clock + normalizeDelay(delay),
		fn:    fn,
	}
	return s.nextID
}

func (s *Virtual) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queue, h)
}

func (s *Virtual) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// AdvanceBy moves the clock forward by d, then runs every due callback in
// runAt order, ties broken by scheduling order. Each entry leaves the queue
// before it runs; a callback scheduled during the pass runs in the same pass
// only if it is already due.
func (s *Virtual) AdvanceBy(d time.Duration) int {
	s.mu.Lock()
	s.clock += normalizeDelay(d)
	s.mu.Unlock()

	ran := 0
	for {
		e := s.popDue()
		if e == nil {
			return ran
		}
		run(s.logger, e.id, e.fn)
		ran++
	}
}

// Pending returns the number of queued callbacks.
func (s *Virtual) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// NextAt reports when the earliest queued callback is due.
func (s *Virtual) NextAt() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.earliest()
	if e == nil {
		return 0, false
	}
	return e.runAt, true
}

// RunPending advances the clock to each queued callback in turn until the
// queue is empty or at least limit callbacks have run. A limit of zero or
// less means no limit.
func (s *Virtual) RunPending(limit int) int {
	ran := 0
	for limit <= 0 || ran < limit {
		at, ok := s.NextAt()
		if !ok {
			break
		}
		ran += s.AdvanceBy(at - s.Now())
	}
	return ran
}

func (s *Virtual) popDue() *virtualEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.earliest()
	if e == nil || e.runAt > s.clock {
		return nil
	}
	delete(s.queue, e.id)
	return e
}

func (s *Virtual) earliest() *virtualEntry {
	var best *virtualEntry
	for _, e := range s.queue {
		if best == nil || e.runAt < best.runAt || (e.runAt == best.runAt && e.id < best.id) {
			best = e
		}
	}
	return best
}
