// Package orchestrator composes the battle state machine with its event bus,
// scheduler and diagnostics, and is the only component that talks to the
// machine directly.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/eventbus"
	"github.com/execution-hub/matchflow/internal/fsm"
	"github.com/execution-hub/matchflow/internal/scheduler"
)

const recordTimeout = 2 * time.Second

// ErrAlreadyInitialized is returned by a second Init call.
var ErrAlreadyInitialized = errors.New("orchestrator already initialized")

// Config holds the static orchestration settings.
type Config struct {
	CatalogVersion     string
	MatchStartState    string
	ReadySignal        string
	TransitionLogLimit int
	WaitTimeout        time.Duration
}

func (c Config) withDefaults() Config {
	if c.CatalogVersion == "" {
		c.CatalogVersion = "v1"
	}
	if c.MatchStartState == "" {
		c.MatchStartState = battle.StateMatchStart
	}
	if c.ReadySignal == "" {
		c.ReadySignal = battle.EventReady
	}
	if c.TransitionLogLimit <= 0 {
		c.TransitionLogLimit = DefaultTransitionLogLimit
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	return c
}

// Dependencies are the collaborators wired into one machine.
type Dependencies struct {
	MatchID       uuid.UUID
	Bus           *eventbus.Bus
	Scheduler     scheduler.Scheduler
	Engine        battle.Engine
	Flags         battle.Flags
	Store         map[string]any
	Definition    *fsm.Definition
	EntryHandlers map[string]fsm.EntryHandler
	Predicates    fsm.Predicates
	Lifecycle     LifecycleSignal
	Recorder      battle.TransitionRecorder
	// Preload loads optional resources before the machine is built. Its
	// failure is logged and ignored.
	Preload func(ctx context.Context) error
}

// Hooks observe the orchestrated machine.
type Hooks struct {
	OnTransition func(fsm.Transition)
}

// Orchestrator owns one machine and its transition side effects.
type Orchestrator struct {
	cfg    Config
	logger zerolog.Logger

	mu        sync.RWMutex
	machine   *fsm.Machine
	mctx      *battle.MatchContext
	deps      Dependencies
	listeners map[uint64]func(fsm.Transition)
	nextID    uint64
	unsub     func()
	disposed  bool

	log     *TransitionLog
	waiters *Waiters
	seq     atomic.Int64
}

// New creates an orchestrator. Init must be called before dispatching.
func New(cfg Config, logger zerolog.Logger) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
		listeners: make(map[uint64]func(fsm.Transition)),
		log:       NewTransitionLog(cfg.TransitionLogLimit),
	}
}

// OnTransition registers a transition listener and returns its removal func.
// Listeners registered before Init receive the synthetic init transition.
func (o *Orchestrator) OnTransition(fn func(fsm.Transition)) func() {
	if fn == nil {
		return func() {}
	}
	o.mu.Lock()
	o.nextID++
	id := o.nextID
	o.listeners[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// Init preloads optional resources, builds the machine, announces the initial
// state to listeners and subscribes to the lifecycle signal.
func (o *Orchestrator) Init(ctx context.Context, deps Dependencies, hooks Hooks) (*fsm.Machine, error) {
	o.mu.RLock()
	disposed, initialized := o.disposed, o.machine != nil
	o.mu.RUnlock()
	if disposed {
		return nil, fmt.Errorf("init orchestrator: %w", fsm.ErrMachineStopped)
	}
	if initialized {
		return nil, ErrAlreadyInitialized
	}

	if deps.Preload != nil {
		if err := deps.Preload(ctx); err != nil {
			o.logger.Warn().Err(err).Str("match_id", deps.MatchID.String()).Msg("preload failed, continuing without it")
		}
	}

	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.NewRealTime(o.logger)
	}
	def := deps.Definition
	if def == nil {
		d, err := battle.DefaultDefinition()
		if err != nil {
			return nil, fmt.Errorf("load default battle table: %w", err)
		}
		def = d
	}
	predicates := BattlePredicates().Merge(deps.Predicates)
	if err := def.ValidateGuards(predicates); err != nil {
		return nil, err
	}

	mctx := battle.NewMatchContext(deps.Engine, deps.Scheduler, deps.Flags)
	for k, v := range deps.Store {
		mctx.Set(k, v)
	}

	machine, err := def.Build(
		fsm.WithData(mctx),
		fsm.WithPredicates(predicates),
		fsm.WithEntryHandlers(deps.EntryHandlers),
		fsm.WithTransitionCallback(o.handleTransition),
		fsm.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build machine: %w", err)
	}

	if hooks.OnTransition != nil {
		o.OnTransition(hooks.OnTransition)
	}

	o.mu.Lock()
	o.deps = deps
	o.mctx = mctx
	o.waiters = NewWaiters(deps.Scheduler)
	o.machine = machine
	o.mu.Unlock()

	initial := fsm.Transition{To: machine.State(), Event: fsm.InitEvent}
	o.log.Add(TransitionEntry{To: initial.To, Event: initial.Event, At: deps.Scheduler.Now()})
	o.notifyListeners(initial)

	if deps.Lifecycle != nil {
		unsub := deps.Lifecycle.Subscribe(o.suspend, o.resume)
		o.mu.Lock()
		o.unsub = unsub
		o.mu.Unlock()
	}

	o.logger.Info().
		Str("match_id", deps.MatchID.String()).
		Str("state", machine.State()).
		Msg("machine initialized")
	return machine, nil
}

// Machine returns the registered machine, or nil before Init and after Dispose.
func (o *Orchestrator) Machine() *fsm.Machine {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.machine
}

// Context returns the machine context, or nil before Init.
func (o *Orchestrator) Context() *battle.MatchContext {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mctx
}

// Log returns the bounded transition log.
func (o *Orchestrator) Log() *TransitionLog {
	return o.log
}

// Dispatch sends an event to the machine. A dispatch error is also announced
// on the bus as a debug panel update.
func (o *Orchestrator) Dispatch(ctx context.Context, event string, payload any) (fsm.DispatchResult, error) {
	m := o.Machine()
	if m == nil {
		return fsm.DispatchResult{Event: event, Reason: "no machine"}, fsm.ErrMachineStopped
	}
	res, err := m.Dispatch(ctx, event, payload)
	if err != nil {
		o.logger.Warn().Err(err).Str("event", event).Str("state", m.State()).Msg("dispatch failed")
		o.Emit(battle.EventDebugPanelUpdate, battle.DebugPanelUpdate{
			Event: event,
			Error: err.Error(),
			State: m.State(),
		})
	}
	return res, err
}

// DispatchBattleEvent dispatches without surfacing errors. It returns nil when
// no machine is registered or the dispatch failed.
func (o *Orchestrator) DispatchBattleEvent(ctx context.Context, event string, payload any) *fsm.DispatchResult {
	if o.Machine() == nil {
		return nil
	}
	res, err := o.Dispatch(ctx, event, payload)
	if err != nil {
		return nil
	}
	return &res
}

// WaitForState returns a completion settled when the machine enters target.
func (o *Orchestrator) WaitForState(target string, timeout time.Duration) (*Completion, error) {
	o.mu.RLock()
	m, w := o.machine, o.waiters
	o.mu.RUnlock()
	if m == nil || w == nil {
		return nil, fsm.ErrMachineStopped
	}
	if timeout <= 0 {
		timeout = o.cfg.WaitTimeout
	}
	return w.Wait(target, m.State(), timeout), nil
}

// Emit publishes on the match bus, falling back to the active bus when no bus
// was supplied.
func (o *Orchestrator) Emit(name string, detail any) {
	o.mu.RLock()
	bus := o.deps.Bus
	o.mu.RUnlock()
	if bus != nil {
		bus.Emit(name, detail)
		return
	}
	eventbus.EmitActive(name, detail)
}

// Dispose releases the lifecycle subscription, stops the machine, cancels
// pending waits and drops listeners. It is safe to call more than once.
func (o *Orchestrator) Dispose() {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}
	o.disposed = true
	unsub, machine, waiters := o.unsub, o.machine, o.waiters
	o.unsub = nil
	o.machine = nil
	o.listeners = make(map[uint64]func(fsm.Transition))
	o.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if machine != nil {
		machine.Stop()
	}
	if waiters != nil {
		waiters.CancelAll()
	}
}

func (o *Orchestrator) handleTransition(t fsm.Transition) {
	o.sideEffect("state.changed", t, func() {
		o.Emit(battle.EventStateChanged, battle.StateChanged{From: t.From, To: t.To, Trigger: t.Event})
	})
	o.sideEffect("readiness", t, func() {
		if t.To == o.cfg.MatchStartState {
			o.Emit(battle.EventReadinessRequired, battle.Readiness{For: battle.ScopeMatch})
		}
		if t.Event == o.cfg.ReadySignal {
			scope := battle.ScopeRound
			if t.From == o.cfg.MatchStartState {
				scope = battle.ScopeMatch
			}
			o.Emit(battle.EventReadinessConfirmed, battle.Readiness{For: scope})
		}
	})
	snapshot := battle.ContextSnapshot{}
	o.sideEffect("control.state.changed", t, func() {
		if mc := o.Context(); mc != nil {
			snapshot = mc.Snapshot()
		}
		o.Emit(battle.EventControlStateChanged, battle.ControlStateChanged{
			From:           t.From,
			To:             t.To,
			Event:          t.Event,
			Context:        snapshot,
			CatalogVersion: o.cfg.CatalogVersion,
		})
	})
	o.sideEffect("interrupt.resolved", t, func() {
		if outcome, ok := battle.InterruptOutcome(t.Event); ok {
			o.Emit(battle.EventInterruptResolved, battle.InterruptResolved{Outcome: outcome})
		}
	})

	o.mu.RLock()
	deps, waiters := o.deps, o.waiters
	o.mu.RUnlock()

	var at time.Duration
	if deps.Scheduler != nil {
		at = deps.Scheduler.Now()
	}
	o.log.Add(TransitionEntry{From: t.From, To: t.To, Event: t.Event, At: at})
	o.sideEffect("record", t, func() { o.record(deps, t, snapshot) })
	if waiters != nil {
		waiters.Resolve(t.To)
	}
	o.notifyListeners(t)
}

func (o *Orchestrator) record(deps Dependencies, t fsm.Transition, snapshot battle.ContextSnapshot) {
	if deps.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	rec := &battle.TransitionRecord{
		MatchID:    deps.MatchID,
		Seq:        o.seq.Add(1),
		FromState:  t.From,
		ToState:    t.To,
		Event:      t.Event,
		Snapshot:   snapshot,
		OccurredAt: time.Now().UTC(),
	}
	if err := deps.Recorder.RecordTransition(ctx, rec); err != nil {
		o.logger.Warn().Err(err).
			Str("match_id", deps.MatchID.String()).
			Str("from", t.From).
			Str("to", t.To).
			Msg("failed to record transition")
	}
}

func (o *Orchestrator) notifyListeners(t fsm.Transition) {
	o.mu.RLock()
	ids := make([]uint64, 0, len(o.listeners))
	for id := range o.listeners {
		ids = append(ids, id)
	}
	o.mu.RUnlock()
	slices.Sort(ids)

	for _, id := range ids {
		o.mu.RLock()
		fn := o.listeners[id]
		o.mu.RUnlock()
		if fn == nil {
			continue
		}
		o.sideEffect("listener", t, func() { fn(t) })
	}
}

// sideEffect runs fn and logs a panic instead of propagating it.
func (o *Orchestrator) sideEffect(name string, t fsm.Transition, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("effect", name).
				Str("from", t.From).
				Str("to", t.To).
				Str("event", t.Event).
				Interface("panic", r).
				Msg("transition side effect failed")
		}
	}()
	fn()
}

func (o *Orchestrator) suspend() {
	if mc := o.Context(); mc != nil && mc.Engine != nil {
		mc.Engine.HandleTabInactive()
	}
}

func (o *Orchestrator) resume() {
	if mc := o.Context(); mc != nil && mc.Engine != nil {
		mc.Engine.HandleTabActive()
	}
}
