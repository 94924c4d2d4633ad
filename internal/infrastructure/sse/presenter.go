package sse

import (
	"github.com/google/uuid"

	"github.com/execution-hub/matchflow/internal/domain/battle"
)

// Presentation stream events.
const (
	EventOutcomeShown      = "presentation.outcome"
	EventTransitionApplied = "presentation.transition"
)

// Presenter publishes round-flow output to one match's stream.
type Presenter struct {
	hub     *Hub
	matchID uuid.UUID
}

// NewPresenter binds a presenter to a match.
func NewPresenter(hub *Hub, matchID uuid.UUID) *Presenter {
	return &Presenter{hub: hub, matchID: matchID}
}

func (p *Presenter) ShowOutcome(outcome battle.RoundEvaluated) {
	p.hub.Publish(p.matchID, EventOutcomeShown, outcome)
}

func (p *Presenter) ApplyTransition(detail any) {
	p.hub.Publish(p.matchID, EventTransitionApplied, detail)
}
