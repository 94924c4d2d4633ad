package battle

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransitionRecord is one persisted state change.
type TransitionRecord struct {
	ID         int64           `json:"id"`
	MatchID    uuid.UUID       `json:"matchId"`
	Seq        int64           `json:"seq"`
	FromState  string          `json:"fromState"`
	ToState    string          `json:"toState"`
	Event      string          `json:"event"`
	Snapshot   ContextSnapshot `json:"snapshot"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// TransitionRecorder persists transitions.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, rec *TransitionRecord) error
	ListTransitions(ctx context.Context, matchID uuid.UUID, limit int) ([]*TransitionRecord, error)
}
