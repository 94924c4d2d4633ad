package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/domain/battle/mocks"
	"github.com/execution-hub/matchflow/internal/fsm"
)

func TestDefaultEntryHandlersWithPlainEngine(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	engine.EXPECT().RoundsPlayed().Return(2).Times(2)
	engine.EXPECT().Scores().Return(battle.Scores{Player: 1, Opponent: 1})

	var emitted []string
	var details []any
	handlers := DefaultEntryHandlers(func(name string, detail any) {
		emitted = append(emitted, name)
		details = append(details, detail)
	}, "tok")

	mc := battle.NewMatchContext(engine, nil, nil)
	c := &fsm.Context{Ctx: context.Background(), Data: mc}
	require.NoError(t, handlers[battle.StateRoundStart](c))

	c.Payload = &battle.RoundOutcome{Winner: battle.WinnerOpponent}
	require.NoError(t, handlers[battle.StateRoundOver](c))

	assert.Equal(t, []string{battle.EventRoundStarted, battle.EventRoundEvaluated}, emitted)
	start := details[0].(battle.RoundStarted)
	assert.Equal(t, 3, *start.RoundIndex)
	assert.Equal(t, 1, *start.Sequence)
	eval := details[1].(battle.RoundEvaluated)
	assert.Equal(t, 1, *eval.Sequence)
	assert.Equal(t, "tok", *eval.MatchToken)
	assert.Equal(t, battle.Scores{Player: 1, Opponent: 1}, eval.Scores)
	assert.Equal(t, battle.WinnerOpponent, eval.Winner)
}

func TestDecodeOutcome(t *testing.T) {
	o, err := decodeOutcome(nil)
	require.NoError(t, err)
	assert.Equal(t, battle.WinnerDraw, o.Winner)

	o, err = decodeOutcome(map[string]any{"stat": "power", "playerValue": 3.5})
	require.NoError(t, err)
	assert.Equal(t, battle.WinnerDraw, o.Winner)
	assert.Equal(t, 3.5, o.PlayerValue)

	_, err = decodeOutcome(map[string]any{"winner": 12})
	assert.Error(t, err)
	_, err = decodeOutcome(map[string]any{"winner": "nobody"})
	assert.Error(t, err)
}

func TestInterruptEntryHandlersAnnounceRequest(t *testing.T) {
	var details []any
	handlers := DefaultEntryHandlers(func(name string, detail any) {
		assert.Equal(t, battle.EventInterruptRequested, name)
		details = append(details, detail)
	}, "tok")

	c := &fsm.Context{Ctx: context.Background(), Payload: "opponent left"}
	require.NoError(t, handlers[battle.StateInterruptRound](c))
	c.Payload = map[string]any{"reason": "network"}
	require.NoError(t, handlers[battle.StateInterruptMatch](c))
	c.Payload = nil
	require.NoError(t, handlers[battle.StateInterruptMatch](c))

	assert.Equal(t, []any{
		battle.InterruptRequested{Scope: battle.ScopeRound, Reason: "opponent left"},
		battle.InterruptRequested{Scope: battle.ScopeMatch, Reason: "network"},
		battle.InterruptRequested{Scope: battle.ScopeMatch},
	}, details)
}
