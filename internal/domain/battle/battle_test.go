package battle

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/execution-hub/matchflow/internal/scheduler"
)

func TestDefaultDefinition(t *testing.T) {
	def, err := DefaultDefinition()
	require.NoError(t, err)
	assert.Equal(t, StateWaitingForMatchStart, def.InitialState())

	for _, name := range []string{
		StateMatchStart, StateCooldown, StateRoundStart, StateWaitingForPlayerAction,
		StateRoundDecision, StateRoundOver, StateMatchDecision, StateMatchOver,
		StateInterruptRound, StateInterruptMatch,
	} {
		_, ok := def.Lookup(name)
		assert.True(t, ok, name)
	}

	roundOver, _ := def.Lookup(StateRoundOver)
	require.NotEmpty(t, roundOver.Triggers)
	assert.Equal(t, GuardWinCondition, roundOver.Triggers[0].Guard.Kind)
}

func TestInterruptOutcome(t *testing.T) {
	cases := map[string]string{
		EventRestartRound: OutcomeRestartRound,
		EventRestartMatch: OutcomeRestartRound,
		EventResumeLobby:  OutcomeResumeLobby,
		EventAbortMatch:   OutcomeAbortMatch,
		EventToLobby:      OutcomeResumeLobby,
	}
	for event, want := range cases {
		got, ok := InterruptOutcome(event)
		assert.True(t, ok, event)
		assert.Equal(t, want, got, event)
	}
	_, ok := InterruptOutcome(EventReady)
	assert.False(t, ok)
}

func TestMatchContextSnapshot(t *testing.T) {
	seed := int64(42)
	engine := NewMemoryEngine(&seed)
	engine.RecordRound(RoundOutcome{Winner: WinnerPlayer})
	engine.RecordRound(RoundOutcome{Winner: WinnerOpponent})
	engine.RecordRound(RoundOutcome{Winner: WinnerPlayer})
	engine.HandleTabInactive()

	mc := NewMatchContext(engine, scheduler.NewImmediate(zerolog.Nop()), ParseFlags("a, b,,"))
	snap := mc.Snapshot()

	assert.Equal(t, 3, snap.RoundIndex)
	assert.Equal(t, Scores{Player: 2, Opponent: 1}, snap.Scores)
	require.NotNil(t, snap.Seed)
	assert.Equal(t, int64(42), *snap.Seed)
	assert.Equal(t, TimerState{Paused: true, Suspensions: 1}, snap.TimerState)
	assert.True(t, mc.FlagEnabled("b"))
	assert.False(t, mc.FlagEnabled("c"))
}

func TestMatchContextWithoutEngine(t *testing.T) {
	mc := NewMatchContext(nil, nil, nil)
	assert.Equal(t, ContextSnapshot{}, mc.Snapshot())
	assert.Equal(t, DefaultPointsToWin, mc.PointsToWin())

	mc.Set(StorePointsToWin, 5)
	assert.Equal(t, 5, mc.PointsToWin())
	mc.Set(StorePointsToWin, float64(2))
	assert.Equal(t, 2, mc.PointsToWin())
	mc.Set(StorePointsToWin, "bad")
	assert.Equal(t, DefaultPointsToWin, mc.PointsToWin())

	mc.Set("custom", true)
	params := mc.Params()
	assert.Equal(t, true, params["custom"])
	assert.Equal(t, Scores{}, params["scores"])
}

func TestMemoryEngine(t *testing.T) {
	e := NewMemoryEngine(nil)
	_, ok := e.Seed()
	assert.False(t, ok)

	e.HandleTabInactive()
	e.HandleTabInactive()
	e.HandleTabActive()
	assert.Equal(t, TimerState{Suspensions: 1}, e.TimerState())

	e.InjectError("boom")
	assert.Equal(t, []string{"boom"}, e.Errors())

	scores := e.RecordRound(RoundOutcome{Winner: WinnerDraw})
	assert.Equal(t, Scores{}, scores)
	assert.Equal(t, 1, e.RoundsPlayed())
	assert.Len(t, e.History(), 1)
}
