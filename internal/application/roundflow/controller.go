// Package roundflow sequences round-outcome announcements so that a delayed
// outcome from an earlier round never reaches the presentation layer after a
// newer round has started.
package roundflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/eventbus"
	"github.com/execution-hub/matchflow/internal/scheduler"
)

// Presenter is the presentation layer fed by the controller.
type Presenter interface {
	ShowOutcome(outcome battle.RoundEvaluated)
	ApplyTransition(detail any)
}

// Config controls the opponent reveal delay. The delay only applies while
// the battle.FlagOpponentDelayMessage flag is enabled.
type Config struct {
	RevealDelay time.Duration
}

// Controller reacts to round lifecycle events on one or more buses.
type Controller struct {
	cfg       Config
	sched     scheduler.Scheduler
	presenter Presenter
	flags     battle.Flags
	logger    zerolog.Logger

	mu         sync.Mutex
	sequence   int
	pending    scheduler.Handle
	pendingGen uint64
	gen        uint64
	authority  battle.Authority
	bound      map[*eventbus.Bus][]eventbus.Subscription
}

// New creates a controller. A nil flags value disables the reveal delay.
func New(cfg Config, sched scheduler.Scheduler, presenter Presenter, flags battle.Flags, logger zerolog.Logger) *Controller {
	return &Controller{
		cfg:       cfg,
		sched:     sched,
		presenter: presenter,
		flags:     flags,
		logger:    logger.With().Str("component", "roundflow").Logger(),
		bound:     make(map[*eventbus.Bus][]eventbus.Subscription),
	}
}

// Bind subscribes the controller to bus. Binding the same bus again is a
// no-op and returns false.
func (c *Controller) Bind(bus *eventbus.Bus) bool {
	if bus == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.bound[bus]; ok {
		return false
	}
	c.bound[bus] = []eventbus.Subscription{
		bus.On(battle.EventRoundStarted, func(e eventbus.Event) { c.HandleRoundStarted(e.Detail) }),
		bus.On(battle.EventRoundEvaluated, func(e eventbus.Event) { c.HandleRoundEvaluated(e.Detail) }),
		bus.On(battle.EventControlStateChanged, func(e eventbus.Event) { c.HandleStateTransition(e.Detail) }),
	}
	return true
}

// Unbind removes the controller's handlers from bus.
func (c *Controller) Unbind(bus *eventbus.Bus) bool {
	c.mu.Lock()
	subs, ok := c.bound[bus]
	delete(c.bound, bus)
	c.mu.Unlock()
	if !ok {
		return false
	}
	for _, sub := range subs {
		bus.Off(sub)
	}
	return true
}

// Close unbinds every bus and cancels a pending outcome.
func (c *Controller) Close() {
	c.mu.Lock()
	buses := make([]*eventbus.Bus, 0, len(c.bound))
	for b := range c.bound {
		buses = append(buses, b)
	}
	c.mu.Unlock()
	for _, b := range buses {
		c.Unbind(b)
	}
	c.clearPending()
}

// HandleRoundStarted advances the round sequence and drops any pending
// outcome. A stale round.started is ignored.
func (c *Controller) HandleRoundStarted(detail any) {
	if c.stale(detail) {
		c.logger.Debug().Msg("ignoring stale round start")
		return
	}
	c.mu.Lock()
	c.sequence++
	c.mu.Unlock()
	c.clearPending()
}

// HandleRoundEvaluated forwards the outcome now or after the reveal delay.
func (c *Controller) HandleRoundEvaluated(detail any) {
	outcome, ok := detail.(battle.RoundEvaluated)
	if !ok {
		if p, isPtr := detail.(*battle.RoundEvaluated); isPtr && p != nil {
			outcome, ok = *p, true
		}
	}
	if !ok {
		c.logger.Warn().Str("type", typeName(detail)).Msg("unexpected round.evaluated payload")
		return
	}
	if c.stale(outcome) {
		c.logger.Debug().Msg("ignoring stale round outcome")
		return
	}

	delay := c.RevealDelay()
	c.clearPending()
	if delay == 0 {
		c.presenter.ShowOutcome(outcome)
		return
	}

	c.mu.Lock()
	seq := c.sequence
	c.gen++
	gen := c.gen
	c.pendingGen = gen
	c.mu.Unlock()

	h := c.sched.Schedule(func() {
		c.mu.Lock()
		if c.pendingGen == gen {
			c.pendingGen = 0
			c.pending = 0
		}
		current := c.sequence
		c.mu.Unlock()
		if current != seq {
			c.logger.Debug().Int("scheduled_for", seq).Int("current", current).Msg("dropping outcome from earlier round")
			return
		}
		c.presenter.ShowOutcome(outcome)
	}, delay)

	c.mu.Lock()
	if c.pendingGen == gen {
		c.pending = h
	}
	c.mu.Unlock()
}

// HandleStateTransition forwards a transition detail unchanged.
func (c *Controller) HandleStateTransition(detail any) {
	c.presenter.ApplyTransition(detail)
}

// RevealDelay returns the effective opponent reveal delay.
func (c *Controller) RevealDelay() time.Duration {
	if c.flags == nil || !c.flags.Enabled(battle.FlagOpponentDelayMessage) {
		return 0
	}
	if c.cfg.RevealDelay <= 0 {
		return 0
	}
	return c.cfg.RevealDelay
}

// Sequence returns the current round sequence.
func (c *Controller) Sequence() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sequence
}

// HasPending reports whether a delayed outcome is scheduled.
func (c *Controller) HasPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingGen != 0
}

func (c *Controller) clearPending() {
	c.mu.Lock()
	h := c.pending
	c.pending = 0
	c.pendingGen = 0
	c.mu.Unlock()
	if h != 0 {
		c.sched.Cancel(h)
	}
}

func (c *Controller) stale(detail any) bool {
	id, ok := battle.IdentityOf(detail)
	if !ok {
		return false
	}
	return !c.authority.Update(id)
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
