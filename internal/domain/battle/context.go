package battle

import (
	"sync"

	"github.com/execution-hub/matchflow/internal/scheduler"
)

// Store keys with a defined meaning.
const (
	StorePointsToWin = "pointsToWin"
	StoreMatchToken  = "matchToken"
)

// DefaultPointsToWin applies when the store holds no pointsToWin value.
const DefaultPointsToWin = 3

// MatchContext is the mutable bag handed to guards and entry handlers of
// one machine. It is never shared across matches.
type MatchContext struct {
	Engine    Engine
	Scheduler scheduler.Scheduler
	Flags     Flags

	mu    sync.RWMutex
	store map[string]any
}

// NewMatchContext creates a context around the given collaborators.
func NewMatchContext(engine Engine, sched scheduler.Scheduler, flags Flags) *MatchContext {
	if flags == nil {
		flags = NewFlagSet()
	}
	return &MatchContext{
		Engine:    engine,
		Scheduler: sched,
		Flags:     flags,
		store:     make(map[string]any),
	}
}

// Get reads a store value.
func (c *MatchContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.store[key]
	return v, ok
}

// Set writes a store value.
func (c *MatchContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}

// Delete removes a store value.
func (c *MatchContext) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

// Values returns a shallow copy of the store.
func (c *MatchContext) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.store))
	for k, v := range c.store {
		out[k] = v
	}
	return out
}

// PointsToWin returns the configured win threshold.
func (c *MatchContext) PointsToWin() int {
	v, ok := c.Get(StorePointsToWin)
	if !ok {
		return DefaultPointsToWin
	}
	if n, ok := intValue(v); ok && n > 0 {
		return n
	}
	return DefaultPointsToWin
}

// FlagEnabled reports whether a feature flag is on.
func (c *MatchContext) FlagEnabled(name string) bool {
	return c.Flags != nil && c.Flags.Enabled(name)
}

// Snapshot captures the engine view. A missing engine yields zero values.
func (c *MatchContext) Snapshot() ContextSnapshot {
	var snap ContextSnapshot
	if c.Engine == nil {
		return snap
	}
	snap.RoundIndex = c.Engine.RoundsPlayed()
	snap.Scores = c.Engine.Scores()
	if seed, ok := c.Engine.Seed(); ok {
		snap.Seed = &seed
	}
	snap.TimerState = c.Engine.TimerState()
	return snap
}

// Params is the view exposed to expression guards: the engine snapshot with
// the store values layered on top.
func (c *MatchContext) Params() map[string]any {
	snap := c.Snapshot()
	params := map[string]any{
		"roundIndex": snap.RoundIndex,
		"scores":     snap.Scores,
		"seed":       snap.Seed,
		"timerState": snap.TimerState,
	}
	for k, v := range c.Values() {
		params[k] = v
	}
	return params
}
