// Package fsm implements a table-driven finite-state machine with data-driven
// guards, entry handlers and run-to-completion dispatch.
package fsm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	// ErrMachineStopped is returned by Dispatch after Stop.
	ErrMachineStopped = errors.New("machine stopped")
	// ErrUnknownGuard is returned when a guard kind has no registered predicate.
	ErrUnknownGuard = errors.New("unknown guard kind")
	// ErrInvalidDefinition wraps every definition validation failure.
	ErrInvalidDefinition = errors.New("invalid definition")
	// ErrHandlerPanic wraps a panic recovered from a guard or entry handler.
	ErrHandlerPanic = errors.New("handler panicked")
)

// ReasonNoMatchingTrigger is reported when no trigger of the current state
// accepts the event.
const ReasonNoMatchingTrigger = "no matching trigger"

// InitEvent names the synthetic transition delivered to listeners at bootstrap.
const InitEvent = "init"

// Guard is a serializable predicate reference. Kind selects a registered
// Predicate; Arg is passed to it verbatim.
type Guard struct {
	Kind   string `yaml:"kind" json:"kind"`
	Arg    string `yaml:"arg,omitempty" json:"arg,omitempty"`
	Negate bool   `yaml:"negate,omitempty" json:"negate,omitempty"`
}

func (g *Guard) String() string {
	if g == nil {
		return "<none>"
	}
	s := g.Kind
	if g.Arg != "" {
		s += "(" + g.Arg + ")"
	}
	if g.Negate {
		s = "!" + s
	}
	return s
}

// Trigger moves the machine to Target when Event arrives and Guard passes.
type Trigger struct {
	Event  string
	Target string
	Guard  *Guard
}

// State is a named node of the table. Triggers are evaluated in order.
type State struct {
	Name     string
	Initial  bool
	Triggers []Trigger
}

// Transition describes a completed state change.
type Transition struct {
	From    string
	To      string
	Event   string
	Payload any
}

// DispatchResult reports the outcome of a Dispatch call. Queued is set when
// the event was deferred behind a transition already in progress.
type DispatchResult struct {
	Accepted bool   `json:"accepted"`
	Queued   bool   `json:"queued,omitempty"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Event    string `json:"event"`
	Reason   string `json:"reason,omitempty"`
}

// Context is handed to predicates and entry handlers.
type Context struct {
	Ctx     context.Context
	Machine *Machine
	Event   string
	Payload any
	From    string
	To      string
	Data    any
	Logger  zerolog.Logger
}

// Dispatch forwards an event to the owning machine. Called from an entry
// handler it is queued until the current transition completes.
func (c *Context) Dispatch(event string, payload any) (DispatchResult, error) {
	return c.Machine.Dispatch(c.Ctx, event, payload)
}

// EntryHandler runs when its state is entered. A returned error aborts the
// transition and restores the previous state.
type EntryHandler func(c *Context) error

// TransitionFunc observes completed transitions.
type TransitionFunc func(Transition)

// Predicate evaluates a guard of one kind.
type Predicate func(c *Context, arg string) (bool, error)

// Predicates maps guard kinds to their evaluators.
type Predicates map[string]Predicate

// Register adds or replaces the evaluator for kind.
func (p Predicates) Register(kind string, fn Predicate) {
	p[kind] = fn
}

// Merge returns a new table holding p overlaid with other.
func (p Predicates) Merge(other Predicates) Predicates {
	out := make(Predicates, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Evaluate interprets g. A nil guard always passes.
func (p Predicates) Evaluate(c *Context, g *Guard) (bool, error) {
	if g == nil {
		return true, nil
	}
	fn, ok := p[g.Kind]
	if !ok || fn == nil {
		return false, fmt.Errorf("%w: %q", ErrUnknownGuard, g.Kind)
	}
	passed, err := fn(c, g.Arg)
	if err != nil {
		return false, err
	}
	return passed != g.Negate, nil
}
