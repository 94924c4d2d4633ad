package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/execution-hub/matchflow/internal/scheduler"
)

func TestWaitersRemoveEntriesOnEveryPath(t *testing.T) {
	sched := scheduler.NewVirtual(zerolog.Nop())
	w := NewWaiters(sched)

	resolved := w.Wait("over", "lobby", time.Second)
	timedOut := w.Wait("over", "lobby", 10*time.Millisecond)
	cancelled := w.Wait("active", "lobby", time.Second)
	assert.Equal(t, 3, w.Len())

	sched.AdvanceBy(10 * time.Millisecond)
	assert.ErrorIs(t, timedOut.Err(), ErrWaitTimeout)
	assert.Equal(t, 2, w.Len())

	cancelled.Cancel()
	assert.ErrorIs(t, cancelled.Err(), ErrWaitCancelled)
	assert.Equal(t, 1, w.Len())

	assert.Equal(t, 1, w.Resolve("over"))
	assert.NoError(t, resolved.Wait(context.Background()))
	assert.Zero(t, w.Len())
	assert.Zero(t, sched.Pending())

	sched.AdvanceBy(time.Hour)
	assert.NoError(t, resolved.Err())
}

func TestCompletionWaitHonoursContext(t *testing.T) {
	w := NewWaiters(scheduler.NewVirtual(zerolog.Nop()))
	c := w.Wait("over", "lobby", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.Canceled)
	assert.Zero(t, w.Len())
	assert.ErrorIs(t, c.Err(), ErrWaitCancelled)
}

func TestManualSignal(t *testing.T) {
	s := NewManualSignal()
	var calls []string
	unsub := s.Subscribe(func() { calls = append(calls, "suspend") }, func() { calls = append(calls, "resume") })

	s.Resume()
	s.SetHidden(true)
	s.SetHidden(true)
	assert.True(t, s.Suspended())
	s.SetHidden(false)
	unsub()
	unsub()
	s.Suspend()

	assert.Equal(t, []string{"suspend", "resume"}, calls)
	assert.Zero(t, s.Subscribers())
}
