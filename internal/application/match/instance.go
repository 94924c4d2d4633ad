// Package match manages the lifecycle of match instances: one isolated
// machine, event bus and scheduler per match.
package match

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/execution-hub/matchflow/internal/application/orchestrator"
	"github.com/execution-hub/matchflow/internal/application/roundflow"
	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/eventbus"
	"github.com/execution-hub/matchflow/internal/fsm"
	"github.com/execution-hub/matchflow/internal/scheduler"
)

var (
	// ErrInstanceDisposed is returned by Init on a disposed instance.
	ErrInstanceDisposed = errors.New("match instance disposed")
	// ErrNotFound is returned for unknown match ids.
	ErrNotFound = errors.New("match not found")
)

// Options configure a new instance.
type Options struct {
	ID           uuid.UUID
	Orchestrator orchestrator.Config
	// Registry receives the instance bus as the active bus. Defaults to
	// eventbus.Default().
	Registry *eventbus.Registry
	// Scheduler is used when Init receives none. A real-time scheduler owned
	// by the instance is created otherwise.
	Scheduler scheduler.Scheduler
	// Presenter, when set, gets a round flow controller bound to the bus.
	Presenter   roundflow.Presenter
	RevealDelay time.Duration
	Logger      zerolog.Logger
}

// ContextOverrides seed the machine context.
type ContextOverrides struct {
	Engine battle.Engine
	Flags  battle.Flags
	Store  map[string]any
}

// Dependencies are injected collaborators. Entry handlers override the
// defaults by state name.
type Dependencies struct {
	Scheduler     scheduler.Scheduler
	Definition    *fsm.Definition
	EntryHandlers map[string]fsm.EntryHandler
	Predicates    fsm.Predicates
	Lifecycle     orchestrator.LifecycleSignal
	Recorder      battle.TransitionRecorder
	Preload       func(ctx context.Context) error
}

// Instance owns one machine, bus and scheduler.
type Instance struct {
	id         uuid.UUID
	matchToken string
	opts       Options
	registry   *eventbus.Registry
	bus        *eventbus.Bus
	orch       *orchestrator.Orchestrator
	logger     zerolog.Logger

	mu         sync.RWMutex
	machine    *fsm.Machine
	sched      scheduler.Scheduler
	ownedSched *scheduler.RealTime
	signal     *orchestrator.ManualSignal
	flow       *roundflow.Controller
	mctx       *battle.MatchContext
	// initStarted is set by Init and cleared again when Init fails.
	initStarted bool
	disposed    bool
}

// Create builds an uninitialized instance with a fresh bus.
func Create(opts Options) *Instance {
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	if opts.Registry == nil {
		opts.Registry = eventbus.Default()
	}
	logger := opts.Logger.With().Str("match_id", opts.ID.String()).Logger()
	return &Instance{
		id:         opts.ID,
		matchToken: uuid.NewString(),
		opts:       opts,
		registry:   opts.Registry,
		bus:        eventbus.New(logger),
		orch:       orchestrator.New(opts.Orchestrator, logger),
		logger:     logger.With().Str("component", "match").Logger(),
	}
}

func (i *Instance) ID() uuid.UUID { return i.id }

// MatchToken identifies this instance in round identities.
func (i *Instance) MatchToken() string { return i.matchToken }

// Bus returns the instance's own bus.
func (i *Instance) Bus() *eventbus.Bus { return i.bus }

// Orchestrator exposes the diagnostics surface.
func (i *Instance) Orchestrator() *orchestrator.Orchestrator { return i.orch }

// Machine returns the machine, or nil before Init succeeds and after Dispose.
func (i *Instance) Machine() *fsm.Machine {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.machine
}

// Scheduler returns the scheduler chosen at Init.
func (i *Instance) Scheduler() scheduler.Scheduler {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.sched
}

// Context returns the machine context, or nil before Init.
func (i *Instance) Context() *battle.MatchContext {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.mctx
}

// Disposed reports whether Dispose ran.
func (i *Instance) Disposed() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.disposed
}

// Init makes the instance bus active, resolves the scheduler and boots the
// orchestrator with the bus passed explicitly.
func (i *Instance) Init(ctx context.Context, overrides ContextOverrides, deps Dependencies, hooks orchestrator.Hooks) (*fsm.Machine, error) {
	i.mu.Lock()
	if i.disposed {
		i.mu.Unlock()
		return nil, ErrInstanceDisposed
	}
	if i.initStarted {
		i.mu.Unlock()
		return nil, orchestrator.ErrAlreadyInitialized
	}
	i.initStarted = true
	sched := deps.Scheduler
	if sched == nil {
		sched = i.opts.Scheduler
	}
	if sched == nil {
		i.ownedSched = scheduler.NewRealTime(i.logger)
		sched = i.ownedSched
	}
	i.sched = sched
	lifecycle := deps.Lifecycle
	if lifecycle == nil {
		i.signal = orchestrator.NewManualSignal()
		lifecycle = i.signal
	}
	i.mu.Unlock()

	i.registry.Set(i.bus)

	store := map[string]any{battle.StoreMatchToken: i.matchToken}
	for k, v := range overrides.Store {
		store[k] = v
	}

	entry := DefaultEntryHandlers(i.bus.Emit, i.matchToken)
	for name, h := range deps.EntryHandlers {
		entry[name] = h
	}

	if i.opts.Presenter != nil {
		flow := roundflow.New(roundflow.Config{RevealDelay: i.opts.RevealDelay}, sched, i.opts.Presenter, overrides.Flags, i.logger)
		flow.Bind(i.bus)
		i.mu.Lock()
		i.flow = flow
		i.mu.Unlock()
	}

	m, err := i.orch.Init(ctx, orchestrator.Dependencies{
		MatchID:       i.id,
		Bus:           i.bus,
		Scheduler:     sched,
		Engine:        overrides.Engine,
		Flags:         overrides.Flags,
		Store:         store,
		Definition:    deps.Definition,
		EntryHandlers: entry,
		Predicates:    deps.Predicates,
		Lifecycle:     lifecycle,
		Recorder:      deps.Recorder,
		Preload:       deps.Preload,
	}, hooks)
	if err != nil {
		i.logger.Warn().Err(err).Msg("match init failed")
		i.abortInit()
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.disposed {
		return nil, ErrInstanceDisposed
	}
	i.machine = m
	i.mctx = i.orch.Context()
	return m, nil
}

// abortInit releases what a failed Init created so Init can be retried.
func (i *Instance) abortInit() {
	i.mu.Lock()
	flow, owned := i.flow, i.ownedSched
	i.flow = nil
	i.ownedSched = nil
	i.signal = nil
	i.sched = nil
	i.initStarted = false
	i.mu.Unlock()
	if flow != nil {
		flow.Close()
	}
	if owned != nil {
		owned.Stop()
	}
}

// DispatchIntent sends an event and reports the outcome in a uniform shape.
// It never panics and never returns a bare error.
func (i *Instance) DispatchIntent(ctx context.Context, event string, payload any) IntentResult {
	if strings.TrimSpace(event) == "" {
		return rejected(ReasonInvalidIntent)
	}
	if i.Machine() == nil {
		return rejected(ReasonNoMachine)
	}

	res, err := i.orch.Dispatch(ctx, event, payload)
	if err != nil {
		if errors.Is(err, fsm.ErrMachineStopped) {
			return rejected(ReasonNoMachine)
		}
		out := rejected(ReasonDispatchException)
		out.Error = err
		return out
	}
	if !res.Accepted {
		out := rejected(ReasonIntentRejected)
		out.Result = &res
		return out
	}
	return IntentResult{Accepted: true, Result: &res}
}

// SetHidden drives the instance-owned lifecycle signal. It reports false when
// the lifecycle signal was injected.
func (i *Instance) SetHidden(hidden bool) bool {
	i.mu.RLock()
	signal := i.signal
	i.mu.RUnlock()
	if signal == nil {
		return false
	}
	signal.SetHidden(hidden)
	return true
}

// Dispose releases the orchestrator, drops the machine, disposes the bus and
// hands the active slot to a fresh bus if this instance still holds it. It is
// safe after a failed or missing Init and on repeated calls.
func (i *Instance) Dispose() {
	i.mu.Lock()
	if i.disposed {
		i.mu.Unlock()
		return
	}
	i.disposed = true
	i.machine = nil
	flow, owned := i.flow, i.ownedSched
	i.flow = nil
	i.mu.Unlock()

	i.orch.Dispose()
	if flow != nil {
		flow.Close()
	}
	i.bus.Dispose()
	if i.registry.Replace(i.bus, eventbus.New(i.opts.Logger)) {
		i.logger.Debug().Msg("active bus replaced")
	}
	if owned != nil {
		owned.Stop()
	}
	i.logger.Info().Msg("match disposed")
}
