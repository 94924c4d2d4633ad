package fsm

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// MachineOption configures a Machine at build time.
type MachineOption func(*Machine)

// WithEntryHandlers installs entry handlers keyed by state name.
func WithEntryHandlers(handlers map[string]EntryHandler) MachineOption {
	return func(m *Machine) {
		for name, h := range handlers {
			if h != nil {
				m.entry[name] = h
			}
		}
	}
}

// WithEntryHandler installs a single entry handler.
func WithEntryHandler(state string, h EntryHandler) MachineOption {
	return func(m *Machine) {
		if h != nil {
			m.entry[state] = h
		}
	}
}

// WithPredicates sets the guard evaluators.
func WithPredicates(p Predicates) MachineOption {
	return func(m *Machine) {
		m.predicates = p
	}
}

// WithData attaches the mutable context shared by guards and handlers.
func WithData(data any) MachineOption {
	return func(m *Machine) {
		m.data = data
	}
}

// WithTransitionCallback observes every completed transition.
func WithTransitionCallback(fn TransitionFunc) MachineOption {
	return func(m *Machine) {
		m.onTransition = fn
	}
}

// WithLogger sets the machine logger.
func WithLogger(logger zerolog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger.With().Str("component", "fsm").Logger()
	}
}

type queuedEvent struct {
	ctx     context.Context
	event   string
	payload any
	// done receives the outcome for callers waiting outside the transition.
	done chan dispatchOutcome
}

type dispatchOutcome struct {
	res DispatchResult
	err error
}

type transitionKey struct{}

// inTransition reports whether ctx belongs to a transition running on m.
func (m *Machine) inTransition(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(transitionKey{}).(*Machine)
	return owner == m
}

// Machine executes a Definition. Transitions run to completion. An event
// dispatched from inside a transition (through the Context handed to guards
// and entry handlers) is queued and handled before the in-flight Dispatch
// returns. Any other caller waits its turn and gets its own result.
type Machine struct {
	def *Definition

	mu      sync.RWMutex
	state   string
	stopped bool

	qmu     sync.Mutex
	running bool
	queue   []queuedEvent

	entry        map[string]EntryHandler
	predicates   Predicates
	data         any
	onTransition TransitionFunc
	logger       zerolog.Logger
}

func newMachine(d *Definition) *Machine {
	return &Machine{
		def:        d,
		state:      d.InitialState(),
		entry:      make(map[string]EntryHandler),
		predicates: Predicates{},
		logger:     zerolog.Nop(),
	}
}

// State returns the current state name.
func (m *Machine) State() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Definition returns the table the machine runs.
func (m *Machine) Definition() *Definition {
	return m.def
}

// Data returns the context attached with WithData.
func (m *Machine) Data() any {
	return m.data
}

// Stop rejects all further dispatches. Queued events are discarded and their
// waiting callers get ErrMachineStopped.
func (m *Machine) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	m.qmu.Lock()
	dropped := m.queue
	m.queue = nil
	m.qmu.Unlock()
	for _, q := range dropped {
		if q.done != nil {
			q.done <- dispatchOutcome{res: DispatchResult{Event: q.event, From: m.State(), To: m.State()}, err: ErrMachineStopped}
		}
	}
	if len(dropped) > 0 {
		m.logger.Debug().Int("dropped", len(dropped)).Msg("queued events discarded on stop")
	}
}

// Stopped reports whether Stop has been called.
func (m *Machine) Stopped() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopped
}

// Dispatch offers an event to the current state. A rejection is reported in
// the result, not as an error. Errors come from guards, entry handlers, or a
// stopped machine. Called from inside a transition on this machine, the event
// is queued and the result has Queued set.
func (m *Machine) Dispatch(ctx context.Context, event string, payload any) (DispatchResult, error) {
	if m.Stopped() {
		return DispatchResult{Event: event, From: m.State(), To: m.State()}, ErrMachineStopped
	}
	if ctx == nil {
		ctx = context.Background()
	}

	m.qmu.Lock()
	if m.running {
		if m.inTransition(ctx) {
			m.queue = append(m.queue, queuedEvent{ctx: ctx, event: event, payload: payload})
			m.qmu.Unlock()
			from := m.State()
			return DispatchResult{Accepted: true, Queued: true, Event: event, From: from, To: from}, nil
		}
		q := queuedEvent{ctx: ctx, event: event, payload: payload, done: make(chan dispatchOutcome, 1)}
		m.queue = append(m.queue, q)
		m.qmu.Unlock()
		return m.await(ctx, q)
	}
	m.running = true
	m.qmu.Unlock()

	res, err := m.process(ctx, event, payload)
	m.drain()
	return res, err
}

// await blocks until a queued event from another caller has been processed.
// A caller whose ctx ends before processing starts withdraws the event.
func (m *Machine) await(ctx context.Context, q queuedEvent) (DispatchResult, error) {
	select {
	case out := <-q.done:
		return out.res, out.err
	case <-ctx.Done():
	}
	m.qmu.Lock()
	for i := range m.queue {
		if m.queue[i].done == q.done {
			m.queue = append(m.queue[:i:i], m.queue[i+1:]...)
			m.qmu.Unlock()
			from := m.State()
			return DispatchResult{Event: q.event, From: from, To: from}, ctx.Err()
		}
	}
	m.qmu.Unlock()
	out := <-q.done
	return out.res, out.err
}

func (m *Machine) drain() {
	for {
		m.qmu.Lock()
		if len(m.queue) == 0 {
			m.running = false
			m.qmu.Unlock()
			return
		}
		next := m.queue[0]
		m.queue = m.queue[1:]
		m.qmu.Unlock()

		res, err := m.process(next.ctx, next.event, next.payload)
		if next.done != nil {
			next.done <- dispatchOutcome{res: res, err: err}
			continue
		}
		if err != nil {
			m.logger.Warn().Err(err).Str("event", next.event).Str("from", res.From).Msg("queued dispatch failed")
		} else if !res.Accepted {
			m.logger.Debug().Str("event", next.event).Str("from", res.From).Str("reason", res.Reason).Msg("queued dispatch rejected")
		}
	}
}

func (m *Machine) process(ctx context.Context, event string, payload any) (DispatchResult, error) {
	from := m.State()
	res := DispatchResult{Event: event, From: from, To: from}
	if m.Stopped() {
		return res, ErrMachineStopped
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Context{
		Ctx:     context.WithValue(ctx, transitionKey{}, m),
		Machine: m,
		Event:   event,
		Payload: payload,
		From:    from,
		Data:    m.data,
		Logger:  m.logger,
	}

	state, ok := m.def.index[from]
	if !ok {
		res.Reason = ReasonNoMatchingTrigger
		return res, nil
	}

	var selected *Trigger
	for i := range state.Triggers {
		t := &state.Triggers[i]
		if t.Event != event {
			continue
		}
		passed, err := m.evaluate(c, t.Guard)
		if err != nil {
			return res, fmt.Errorf("guard %s on %s --%s--> %s: %w", t.Guard, from, event, t.Target, err)
		}
		if passed {
			selected = t
			break
		}
	}
	if selected == nil {
		res.Reason = ReasonNoMatchingTrigger
		return res, nil
	}

	c.To = selected.Target
	m.setState(selected.Target)
	if h, ok := m.entry[selected.Target]; ok {
		if err := m.enter(h, c); err != nil {
			m.setState(from)
			return res, fmt.Errorf("enter %s from %s on %s: %w", selected.Target, from, event, err)
		}
	}

	res.Accepted = true
	res.To = selected.Target
	m.notify(Transition{From: from, To: selected.Target, Event: event, Payload: payload})
	return res, nil
}

func (m *Machine) evaluate(c *Context, g *Guard) (passed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return m.predicates.Evaluate(c, g)
}

func (m *Machine) enter(h EntryHandler, c *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(c)
}

func (m *Machine) notify(t Transition) {
	if m.onTransition == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("from", t.From).
				Str("to", t.To).
				Str("event", t.Event).
				Interface("panic", r).
				Msg("transition callback panicked")
		}
	}()
	m.onTransition(t)
}

func (m *Machine) setState(s string) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
