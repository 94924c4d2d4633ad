package battle

import (
	_ "embed"
	"fmt"

	"github.com/execution-hub/matchflow/internal/fsm"
)

// Battle states.
const (
	StateWaitingForMatchStart   = "waitingForMatchStart"
	StateMatchStart             = "matchStart"
	StateCooldown               = "cooldown"
	StateRoundStart             = "roundStart"
	StateWaitingForPlayerAction = "waitingForPlayerAction"
	StateRoundDecision          = "roundDecision"
	StateRoundOver              = "roundOver"
	StateMatchDecision          = "matchDecision"
	StateMatchOver              = "matchOver"
	StateInterruptRound         = "interruptRound"
	StateInterruptMatch         = "interruptMatch"
)

// Battle machine events.
const (
	EventStartClicked  = "startClicked"
	EventReady         = "ready"
	EventCardsRevealed = "cardsRevealed"
	EventStatSelected  = "statSelected"
	EventTimeout       = "timeout"
	EventOutcome       = "outcome"
	EventContinue      = "continue"
	EventFinalize      = "finalize"
	EventRematch       = "rematch"
	EventInterrupt     = "interrupt"
	EventRestartRound  = "restartRound"
	EventRestartMatch  = "restartMatch"
	EventResumeLobby   = "resumeLobby"
	EventAbortMatch    = "abortMatch"
	EventToLobby       = "toLobby"
)

// Guard kinds understood by the battle predicates.
const (
	GuardWinCondition = "win_condition"
	GuardFeatureFlag  = "feature_flag"
	GuardExpression   = "expression"
	GuardStore        = "store"
)

//go:embed default_table.yaml
var defaultTable []byte

// DefaultTable returns a fresh copy of the built-in battle table.
func DefaultTable() *fsm.Table {
	t, err := fsm.ParseTable(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("battle: embedded state table: %v", err))
	}
	return t
}

// DefaultDefinition returns the built-in battle table as a Definition.
func DefaultDefinition() (*fsm.Definition, error) {
	return DefaultTable().Definition()
}
