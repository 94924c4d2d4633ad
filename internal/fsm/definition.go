package fsm

import "fmt"

// Definition holds the state table before a Machine is built.
type Definition struct {
	states []*State
	index  map[string]*State
}

// NewDefinition creates an empty definition builder.
func NewDefinition() *Definition {
	return &Definition{index: make(map[string]*State)}
}

// StateOption configures a state.
type StateOption func(*State)

// AsInitial marks the state as the machine's initial state.
func AsInitial() StateOption {
	return func(s *State) { s.Initial = true }
}

// TriggerOption configures a trigger.
type TriggerOption func(*Trigger)

// WithGuard gates a trigger on g.
func WithGuard(g Guard) TriggerOption {
	return func(t *Trigger) {
		gc := g
		t.Guard = &gc
	}
}

// State adds a state. Declaring a name twice is reported by Validate.
func (d *Definition) State(name string, opts ...StateOption) *Definition {
	s := &State{Name: name}
	for _, opt := range opts {
		opt(s)
	}
	d.states = append(d.states, s)
	if _, exists := d.index[name]; !exists {
		d.index[name] = s
	}
	return d
}

// Initial marks an already declared state as initial.
func (d *Definition) Initial(name string) *Definition {
	if s, ok := d.index[name]; ok {
		s.Initial = true
	}
	return d
}

// Transition appends a trigger to the from state. Triggers keep declaration
// order, which decides precedence between guards on the same event.
func (d *Definition) Transition(from, event, to string, opts ...TriggerOption) *Definition {
	t := Trigger{Event: event, Target: to}
	for _, opt := range opts {
		opt(&t)
	}
	s, ok := d.index[from]
	if !ok {
		d.State(from)
		s = d.index[from]
	}
	s.Triggers = append(s.Triggers, t)
	return d
}

// Validate checks the table for structural errors.
func (d *Definition) Validate() error {
	if len(d.states) == 0 {
		return fmt.Errorf("%w: no states", ErrInvalidDefinition)
	}
	seen := make(map[string]bool, len(d.states))
	initial := ""
	for _, s := range d.states {
		if s.Name == "" {
			return fmt.Errorf("%w: state with empty name", ErrInvalidDefinition)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate state %q", ErrInvalidDefinition, s.Name)
		}
		seen[s.Name] = true
		if s.Initial {
			if initial != "" {
				return fmt.Errorf("%w: states %q and %q both marked initial", ErrInvalidDefinition, initial, s.Name)
			}
			initial = s.Name
		}
	}
	if initial == "" {
		return fmt.Errorf("%w: no initial state", ErrInvalidDefinition)
	}
	for _, s := range d.states {
		for _, t := range s.Triggers {
			if t.Event == "" {
				return fmt.Errorf("%w: state %q has a trigger without event", ErrInvalidDefinition, s.Name)
			}
			if !seen[t.Target] {
				return fmt.Errorf("%w: state %q event %q targets undefined state %q", ErrInvalidDefinition, s.Name, t.Event, t.Target)
			}
		}
	}
	return nil
}

// ValidateGuards checks that every guard kind in the table has an evaluator.
func (d *Definition) ValidateGuards(p Predicates) error {
	for _, s := range d.states {
		for _, t := range s.Triggers {
			if t.Guard == nil {
				continue
			}
			if _, ok := p[t.Guard.Kind]; !ok {
				return fmt.Errorf("%w: state %q event %q: %w %q", ErrInvalidDefinition, s.Name, t.Event, ErrUnknownGuard, t.Guard.Kind)
			}
		}
	}
	return nil
}

// InitialState returns the name of the initial state, or "" when none is set.
func (d *Definition) InitialState() string {
	for _, s := range d.states {
		if s.Initial {
			return s.Name
		}
	}
	return ""
}

// States returns state names in declaration order.
func (d *Definition) States() []string {
	out := make([]string, 0, len(d.states))
	for _, s := range d.states {
		out = append(out, s.Name)
	}
	return out
}

// Lookup returns the state with the given name.
func (d *Definition) Lookup(name string) (State, bool) {
	s, ok := d.index[name]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// Build validates the definition and creates a Machine positioned on the
// initial state.
func (d *Definition) Build(opts ...MachineOption) (*Machine, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	m := newMachine(d)
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}
