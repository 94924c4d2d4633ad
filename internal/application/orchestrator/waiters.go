package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/execution-hub/matchflow/internal/scheduler"
)

var (
	// ErrWaitTimeout is reported when the target state was not reached in time.
	ErrWaitTimeout = errors.New("timed out waiting for state")
	// ErrWaitCancelled is reported when a wait was cancelled or its match disposed.
	ErrWaitCancelled = errors.New("wait cancelled")
)

// DefaultWaitTimeout applies when WaitForState gets a non-positive timeout.
const DefaultWaitTimeout = 10 * time.Second

// Completion is a pending wait for a state.
type Completion struct {
	target string
	id     uint64
	owner  *Waiters
	handle scheduler.Handle
	done   chan struct{}
	once   sync.Once
	err    error
}

func newCompletion(target string) *Completion {
	return &Completion{target: target, done: make(chan struct{})}
}

// Target is the awaited state.
func (c *Completion) Target() string { return c.target }

// Done is closed once the wait settles.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Err returns nil after the state was reached, or the failure. It is only
// meaningful after Done is closed.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the wait settles or ctx ends.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		c.Cancel()
		return ctx.Err()
	}
}

// Cancel settles the wait with ErrWaitCancelled if it is still pending.
func (c *Completion) Cancel() {
	if w := c.owner; w != nil {
		w.remove(c)
		w.mu.Lock()
		h := c.handle
		w.mu.Unlock()
		w.sched.Cancel(h)
	}
	c.settle(ErrWaitCancelled)
}

func (c *Completion) settle(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// Waiters resolves completions when their target state is entered. Deadlines
// run on the match scheduler so virtual time can expire them.
type Waiters struct {
	sched scheduler.Scheduler

	mu      sync.Mutex
	next    uint64
	pending map[string]map[uint64]*Completion
}

// NewWaiters creates an empty registry.
func NewWaiters(sched scheduler.Scheduler) *Waiters {
	return &Waiters{sched: sched, pending: make(map[string]map[uint64]*Completion)}
}

// Wait registers a completion for target. It settles immediately when
// current already equals target.
func (w *Waiters) Wait(target, current string, timeout time.Duration) *Completion {
	c := newCompletion(target)
	if target == current {
		c.settle(nil)
		return c
	}
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	w.mu.Lock()
	w.next++
	c.id = w.next
	c.owner = w
	if w.pending[target] == nil {
		w.pending[target] = make(map[uint64]*Completion)
	}
	w.pending[target][c.id] = c
	w.mu.Unlock()

	h := w.sched.Schedule(func() {
		if w.remove(c) {
			c.settle(ErrWaitTimeout)
		}
	}, timeout)

	w.mu.Lock()
	c.handle = h
	w.mu.Unlock()
	return c
}

// Resolve settles every completion waiting for state.
func (w *Waiters) Resolve(state string) int {
	w.mu.Lock()
	settled := w.take(w.pending[state])
	delete(w.pending, state)
	w.mu.Unlock()

	for _, s := range settled {
		w.sched.Cancel(s.handle)
		s.c.settle(nil)
	}
	return len(settled)
}

// CancelAll settles every pending completion with ErrWaitCancelled.
func (w *Waiters) CancelAll() {
	w.mu.Lock()
	var settled []pendingWait
	for _, group := range w.pending {
		settled = append(settled, w.take(group)...)
	}
	w.pending = make(map[string]map[uint64]*Completion)
	w.mu.Unlock()

	for _, s := range settled {
		w.sched.Cancel(s.handle)
		s.c.settle(ErrWaitCancelled)
	}
}

// Len returns the number of pending completions.
func (w *Waiters) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, group := range w.pending {
		n += len(group)
	}
	return n
}

type pendingWait struct {
	c      *Completion
	handle scheduler.Handle
}

// take snapshots a group with its handles. Callers hold w.mu.
func (w *Waiters) take(group map[uint64]*Completion) []pendingWait {
	out := make([]pendingWait, 0, len(group))
	for _, c := range group {
		out = append(out, pendingWait{c: c, handle: c.handle})
	}
	return out
}

func (w *Waiters) remove(c *Completion) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	group, ok := w.pending[c.target]
	if !ok {
		return false
	}
	if _, ok := group[c.id]; !ok {
		return false
	}
	delete(group, c.id)
	if len(group) == 0 {
		delete(w.pending, c.target)
	}
	return true
}
