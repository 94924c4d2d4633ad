// Package battle defines the canonical events, payloads and match-scoped
// context shared by the battle orchestration components.
package battle

// Bus event names.
const (
	EventStateChanged        = "state.changed"
	EventControlStateChanged = "control.state.changed"
	EventReadinessRequired   = "control.readiness.required"
	EventReadinessConfirmed  = "control.readiness.confirmed"
	EventInterruptRequested  = "interrupt.requested"
	EventInterruptResolved   = "interrupt.resolved"
	EventRoundStarted        = "round.started"
	EventRoundEvaluated      = "round.evaluated"
	EventDebugPanelUpdate    = "debug.panel.update"
)

// Readiness scopes.
const (
	ScopeMatch = "match"
	ScopeRound = "round"
)

// StateChanged mirrors every transition. From is empty for the synthetic
// init transition.
type StateChanged struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Trigger string `json:"trigger"`
}

// ContextSnapshot is the engine view published with control.state.changed.
type ContextSnapshot struct {
	RoundIndex int    `json:"roundIndex"`
	Scores     Scores `json:"scores"`
	Seed       *int64 `json:"seed"`
	TimerState any    `json:"timerState"`
}

// ControlStateChanged is the authoritative, versioned transition event.
type ControlStateChanged struct {
	From           string          `json:"from"`
	To             string          `json:"to"`
	Event          string          `json:"event"`
	Context        ContextSnapshot `json:"context"`
	CatalogVersion string          `json:"catalogVersion"`
}

// Readiness is carried by control.readiness.required and .confirmed.
type Readiness struct {
	For string `json:"for"`
}

// InterruptRequested asks the machine to interrupt a round or the match.
type InterruptRequested struct {
	Scope  string `json:"scope"`
	Reason string `json:"reason,omitempty"`
}

// InterruptResolved reports how an interrupt was resolved.
type InterruptResolved struct {
	Outcome string `json:"outcome"`
}

// RoundStarted opens a round.
type RoundStarted struct {
	RoundIdentity
}

// RoundEvaluated carries the outcome of a finished round.
type RoundEvaluated struct {
	RoundIdentity
	RoundOutcome
	Scores Scores `json:"scores"`
}

// DebugPanelUpdate is emitted when a dispatch fails.
type DebugPanelUpdate struct {
	Event string `json:"event"`
	Error string `json:"error"`
	State string `json:"state"`
}
