package match

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/fsm"
)

// EmitFunc publishes a bus event.
type EmitFunc func(name string, detail any)

// DefaultEntryHandlers feeds round lifecycle events from machine entries.
// roundStart announces a new round identity; roundOver records the outcome
// carried by the triggering event and announces it. The interrupt states
// announce the request with the reason carried by the interrupt event.
func DefaultEntryHandlers(emit EmitFunc, matchToken string) map[string]fsm.EntryHandler {
	var (
		mu       sync.Mutex
		sequence int
	)
	identity := func(roundIndex int, bump bool) battle.RoundIdentity {
		mu.Lock()
		defer mu.Unlock()
		if bump {
			sequence++
		}
		return battle.NewRoundIdentity(roundIndex, matchToken, sequence)
	}

	return map[string]fsm.EntryHandler{
		battle.StateRoundStart: func(c *fsm.Context) error {
			round := 1
			if mc, ok := c.Data.(*battle.MatchContext); ok && mc.Engine != nil {
				round = mc.Engine.RoundsPlayed() + 1
			}
			emit(battle.EventRoundStarted, battle.RoundStarted{RoundIdentity: identity(round, true)})
			return nil
		},
		battle.StateRoundOver: func(c *fsm.Context) error {
			outcome, err := decodeOutcome(c.Payload)
			if err != nil {
				return err
			}
			var scores battle.Scores
			round := 0
			if mc, ok := c.Data.(*battle.MatchContext); ok && mc.Engine != nil {
				if rec, ok := mc.Engine.(battle.RoundRecorder); ok {
					scores = rec.RecordRound(outcome)
				} else {
					scores = mc.Engine.Scores()
				}
				round = mc.Engine.RoundsPlayed()
			}
			emit(battle.EventRoundEvaluated, battle.RoundEvaluated{
				RoundIdentity: identity(round, false),
				RoundOutcome:  outcome,
				Scores:        scores,
			})
			return nil
		},
		battle.StateInterruptRound: func(c *fsm.Context) error {
			emit(battle.EventInterruptRequested, battle.InterruptRequested{Scope: battle.ScopeRound, Reason: interruptReason(c.Payload)})
			return nil
		},
		battle.StateInterruptMatch: func(c *fsm.Context) error {
			emit(battle.EventInterruptRequested, battle.InterruptRequested{Scope: battle.ScopeMatch, Reason: interruptReason(c.Payload)})
			return nil
		},
	}
}

func interruptReason(payload any) string {
	switch v := payload.(type) {
	case string:
		return v
	case battle.InterruptRequested:
		return v.Reason
	case *battle.InterruptRequested:
		if v != nil {
			return v.Reason
		}
	case map[string]any:
		if r, ok := v["reason"].(string); ok {
			return r
		}
	}
	return ""
}

func decodeOutcome(payload any) (battle.RoundOutcome, error) {
	switch v := payload.(type) {
	case nil:
		return battle.RoundOutcome{Winner: battle.WinnerDraw}, nil
	case battle.RoundOutcome:
		return v, nil
	case *battle.RoundOutcome:
		if v == nil {
			return battle.RoundOutcome{Winner: battle.WinnerDraw}, nil
		}
		return *v, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return battle.RoundOutcome{}, fmt.Errorf("encode round outcome: %w", err)
	}
	var out battle.RoundOutcome
	if err := json.Unmarshal(raw, &out); err != nil {
		return battle.RoundOutcome{}, fmt.Errorf("decode round outcome: %w", err)
	}
	switch out.Winner {
	case battle.WinnerPlayer, battle.WinnerOpponent, battle.WinnerDraw:
	case "":
		out.Winner = battle.WinnerDraw
	default:
		return battle.RoundOutcome{}, fmt.Errorf("decode round outcome: unknown winner %q", out.Winner)
	}
	return out, nil
}
