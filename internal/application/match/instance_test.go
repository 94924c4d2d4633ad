package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/execution-hub/matchflow/internal/application/orchestrator"
	rfmocks "github.com/execution-hub/matchflow/internal/application/roundflow/mocks"
	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/domain/battle/mocks"
	"github.com/execution-hub/matchflow/internal/eventbus"
	"github.com/execution-hub/matchflow/internal/fsm"
	"github.com/execution-hub/matchflow/internal/scheduler"
)

func newTestInstance(t *testing.T, registry *eventbus.Registry) *Instance {
	t.Helper()
	return Create(Options{
		Registry:  registry,
		Scheduler: scheduler.NewVirtual(zerolog.Nop()),
		Logger:    zerolog.Nop(),
	})
}

func TestDispatchIntentContract(t *testing.T) {
	inst := newTestInstance(t, eventbus.NewRegistry())
	ctx := context.Background()

	res := inst.DispatchIntent(ctx, "", nil)
	assert.Equal(t, IntentResult{Rejected: true, Reason: ReasonInvalidIntent}, res)
	assert.Equal(t, ReasonInvalidIntent, inst.DispatchIntent(ctx, "   ", nil).Reason)

	res = inst.DispatchIntent(ctx, battle.EventStartClicked, nil)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonNoMachine, res.Reason)

	boom := errors.New("entry failed")
	_, err := inst.Init(ctx, ContextOverrides{Engine: battle.NewMemoryEngine(nil)}, Dependencies{
		EntryHandlers: map[string]fsm.EntryHandler{
			battle.StateCooldown: func(*fsm.Context) error { return boom },
		},
	}, orchestrator.Hooks{})
	require.NoError(t, err)

	res = inst.DispatchIntent(ctx, battle.EventFinalize, nil)
	assert.False(t, res.Accepted)
	assert.True(t, res.Rejected)
	assert.Equal(t, ReasonIntentRejected, res.Reason)
	require.NotNil(t, res.Result)
	assert.Equal(t, fsm.ReasonNoMatchingTrigger, res.Result.Reason)

	res = inst.DispatchIntent(ctx, battle.EventStartClicked, nil)
	assert.True(t, res.Accepted)
	assert.False(t, res.Rejected)
	assert.Equal(t, battle.StateMatchStart, res.Result.To)

	res = inst.DispatchIntent(ctx, battle.EventReady, nil)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonDispatchException, res.Reason)
	assert.ErrorIs(t, res.Error, boom)
	assert.Contains(t, res.ErrorMessage(), "entry failed")
	assert.Equal(t, battle.StateMatchStart, inst.Machine().State())
}

func TestPanickingEntryHandlerIsDispatchException(t *testing.T) {
	inst := newTestInstance(t, eventbus.NewRegistry())
	var updates []battle.DebugPanelUpdate
	inst.Bus().On(battle.EventDebugPanelUpdate, func(e eventbus.Event) {
		updates = append(updates, e.Detail.(battle.DebugPanelUpdate))
	})
	_, err := inst.Init(context.Background(), ContextOverrides{}, Dependencies{
		EntryHandlers: map[string]fsm.EntryHandler{
			battle.StateMatchStart: func(*fsm.Context) error { panic("nil engine") },
		},
	}, orchestrator.Hooks{})
	require.NoError(t, err)

	res := inst.DispatchIntent(context.Background(), battle.EventStartClicked, nil)
	assert.Equal(t, ReasonDispatchException, res.Reason)
	assert.ErrorIs(t, res.Error, fsm.ErrHandlerPanic)
	require.Len(t, updates, 1)
	assert.Equal(t, battle.EventStartClicked, updates[0].Event)
}

func TestInstanceIsolation(t *testing.T) {
	registry := eventbus.NewRegistry()
	ctx := context.Background()

	a := newTestInstance(t, registry)
	_, err := a.Init(ctx, ContextOverrides{}, Dependencies{}, orchestrator.Hooks{})
	require.NoError(t, err)
	assert.Same(t, a.Bus(), registry.Get())

	received := 0
	a.Bus().On("x", func(eventbus.Event) { received++ })
	registry.Get().Emit("x", nil)
	a.Dispose()

	assert.NotSame(t, a.Bus(), registry.Get())
	require.NotNil(t, registry.Get())

	b := newTestInstance(t, registry)
	_, err = b.Init(ctx, ContextOverrides{}, Dependencies{}, orchestrator.Hooks{})
	require.NoError(t, err)
	assert.Same(t, b.Bus(), registry.Get())

	b.Bus().Emit("x", nil)
	registry.Get().Emit("x", nil)
	a.Bus().Emit("x", nil)
	assert.Equal(t, 1, received)

	a.Bus().On("x", func(eventbus.Event) { received++ })
	b.Bus().Emit("x", nil)
	assert.Equal(t, 1, received)
	b.Dispose()
}

func TestDisposeLeavesOtherActiveBus(t *testing.T) {
	registry := eventbus.NewRegistry()
	a := newTestInstance(t, registry)
	b := newTestInstance(t, registry)
	_, err := a.Init(context.Background(), ContextOverrides{}, Dependencies{}, orchestrator.Hooks{})
	require.NoError(t, err)
	_, err = b.Init(context.Background(), ContextOverrides{}, Dependencies{}, orchestrator.Hooks{})
	require.NoError(t, err)

	a.Dispose()
	assert.Same(t, b.Bus(), registry.Get())
	assert.NotNil(t, b.Machine())
}

func TestDisposeAfterFailedInit(t *testing.T) {
	registry := eventbus.NewRegistry()
	inst := newTestInstance(t, registry)
	def := fsm.NewDefinition().
		State("a", fsm.AsInitial()).
		State("b").
		Transition("a", "go", "b", fsm.WithGuard(fsm.Guard{Kind: "unregistered"}))

	_, err := inst.Init(context.Background(), ContextOverrides{}, Dependencies{Definition: def}, orchestrator.Hooks{})
	require.ErrorIs(t, err, fsm.ErrUnknownGuard)
	assert.Nil(t, inst.Machine())
	assert.Equal(t, ReasonNoMachine, inst.DispatchIntent(context.Background(), "go", nil).Reason)

	require.NotPanics(t, inst.Dispose)
	require.NotPanics(t, inst.Dispose)
	assert.True(t, inst.Disposed())
	assert.True(t, inst.Bus().Disposed())

	_, err = inst.Init(context.Background(), ContextOverrides{}, Dependencies{}, orchestrator.Hooks{})
	assert.ErrorIs(t, err, ErrInstanceDisposed)
}

func TestDisposeWithoutInit(t *testing.T) {
	registry := eventbus.NewRegistry()
	other := eventbus.New(zerolog.Nop())
	registry.Set(other)

	inst := newTestInstance(t, registry)
	inst.Dispose()
	assert.Same(t, other, registry.Get())
	assert.Equal(t, ReasonNoMachine, inst.DispatchIntent(context.Background(), battle.EventReady, nil).Reason)
}

func TestRoundFeedThroughPresenter(t *testing.T) {
	sched := scheduler.NewVirtual(zerolog.Nop())
	presenter := &rfmocks.MockPresenter{}
	presenter.On("ApplyTransition", mock.Anything).Return()
	presenter.On("ShowOutcome", mock.MatchedBy(func(o battle.RoundEvaluated) bool {
		return o.Winner == battle.WinnerPlayer && o.Scores.Player == 1
	})).Once()

	inst := Create(Options{
		Registry:    eventbus.NewRegistry(),
		Scheduler:   sched,
		Presenter:   presenter,
		RevealDelay: 200 * time.Millisecond,
		Logger:      zerolog.Nop(),
	})
	var started []battle.RoundStarted
	inst.Bus().On(battle.EventRoundStarted, func(e eventbus.Event) {
		started = append(started, e.Detail.(battle.RoundStarted))
	})

	engine := battle.NewMemoryEngine(nil)
	_, err := inst.Init(context.Background(), ContextOverrides{
		Engine: engine,
		Flags:  battle.NewFlagSet(battle.FlagOpponentDelayMessage),
	}, Dependencies{}, orchestrator.Hooks{})
	require.NoError(t, err)

	ctx := context.Background()
	for _, ev := range []string{battle.EventStartClicked, battle.EventReady, battle.EventReady, battle.EventCardsRevealed, battle.EventStatSelected} {
		require.True(t, inst.DispatchIntent(ctx, ev, nil).Accepted, ev)
	}
	res := inst.DispatchIntent(ctx, battle.EventOutcome, map[string]any{"winner": "player", "stat": "speed", "playerValue": 9, "opponentValue": 4})
	require.True(t, res.Accepted)

	require.Len(t, started, 1)
	assert.Equal(t, 1, *started[0].RoundIndex)
	assert.Equal(t, inst.MatchToken(), *started[0].MatchToken)
	assert.Equal(t, 1, engine.RoundsPlayed())

	presenter.AssertNotCalled(t, "ShowOutcome", mock.Anything)
	sched.AdvanceBy(200 * time.Millisecond)
	presenter.AssertExpectations(t)

	res = inst.DispatchIntent(ctx, battle.EventOutcome, nil)
	assert.Equal(t, ReasonIntentRejected, res.Reason)

	inst.Dispose()
	assert.Zero(t, inst.Bus().HandlerCount(battle.EventRoundEvaluated))
}

func TestInvalidOutcomePayloadIsDispatchException(t *testing.T) {
	inst := newTestInstance(t, eventbus.NewRegistry())
	_, err := inst.Init(context.Background(), ContextOverrides{}, Dependencies{}, orchestrator.Hooks{})
	require.NoError(t, err)
	ctx := context.Background()
	for _, ev := range []string{battle.EventStartClicked, battle.EventReady, battle.EventReady, battle.EventCardsRevealed, battle.EventTimeout} {
		require.True(t, inst.DispatchIntent(ctx, ev, nil).Accepted, ev)
	}
	res := inst.DispatchIntent(ctx, battle.EventOutcome, map[string]any{"winner": "referee"})
	assert.Equal(t, ReasonDispatchException, res.Reason)
	assert.Equal(t, battle.StateRoundDecision, inst.Machine().State())
}

func TestSetHiddenDrivesEngine(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	engine.EXPECT().HandleTabInactive().Times(1)
	engine.EXPECT().HandleTabActive().Times(1)

	inst := newTestInstance(t, eventbus.NewRegistry())
	assert.False(t, inst.SetHidden(true))
	_, err := inst.Init(context.Background(), ContextOverrides{Engine: engine}, Dependencies{}, orchestrator.Hooks{})
	require.NoError(t, err)

	assert.True(t, inst.SetHidden(true))
	assert.True(t, inst.SetHidden(false))
	inst.Dispose()
}

func TestInjectedLifecycleIsNotDriven(t *testing.T) {
	signal := orchestrator.NewManualSignal()
	inst := newTestInstance(t, eventbus.NewRegistry())
	_, err := inst.Init(context.Background(), ContextOverrides{}, Dependencies{Lifecycle: signal}, orchestrator.Hooks{})
	require.NoError(t, err)
	assert.False(t, inst.SetHidden(true))
	assert.Equal(t, 1, signal.Subscribers())
	inst.Dispose()
	assert.Zero(t, signal.Subscribers())
}

func TestSecondInitKeepsSingleRoundFlowBinding(t *testing.T) {
	presenter := &rfmocks.MockPresenter{}
	presenter.On("ShowOutcome", mock.Anything).Return()
	inst := Create(Options{
		Registry:  eventbus.NewRegistry(),
		Scheduler: scheduler.NewVirtual(zerolog.Nop()),
		Presenter: presenter,
		Logger:    zerolog.Nop(),
	})
	defer inst.Dispose()

	ctx := context.Background()
	_, err := inst.Init(ctx, ContextOverrides{}, Dependencies{}, orchestrator.Hooks{})
	require.NoError(t, err)
	_, err = inst.Init(ctx, ContextOverrides{}, Dependencies{}, orchestrator.Hooks{})
	require.ErrorIs(t, err, orchestrator.ErrAlreadyInitialized)
	assert.NotNil(t, inst.Machine())

	assert.Equal(t, 1, inst.Bus().HandlerCount(battle.EventRoundEvaluated))
	inst.Bus().Emit(battle.EventRoundEvaluated, battle.RoundEvaluated{
		RoundOutcome: battle.RoundOutcome{Winner: battle.WinnerPlayer},
	})
	presenter.AssertNumberOfCalls(t, "ShowOutcome", 1)
}

func TestInitCanBeRetriedAfterFailure(t *testing.T) {
	presenter := &rfmocks.MockPresenter{}
	inst := Create(Options{
		Registry:  eventbus.NewRegistry(),
		Presenter: presenter,
		Logger:    zerolog.Nop(),
	})
	defer inst.Dispose()

	bad := fsm.NewDefinition().
		State("a", fsm.AsInitial()).
		State("b").
		Transition("a", "go", "b", fsm.WithGuard(fsm.Guard{Kind: "unregistered"}))
	_, err := inst.Init(context.Background(), ContextOverrides{}, Dependencies{Definition: bad}, orchestrator.Hooks{})
	require.ErrorIs(t, err, fsm.ErrUnknownGuard)
	assert.Zero(t, inst.Bus().HandlerCount(battle.EventRoundEvaluated))
	assert.Nil(t, inst.Scheduler())

	m, err := inst.Init(context.Background(), ContextOverrides{}, Dependencies{}, orchestrator.Hooks{})
	require.NoError(t, err)
	assert.Equal(t, battle.StateWaitingForMatchStart, m.State())
	assert.Equal(t, 1, inst.Bus().HandlerCount(battle.EventRoundEvaluated))
	assert.NotNil(t, inst.Scheduler())
}

func TestConcurrentIntentReportsItsOwnOutcome(t *testing.T) {
	inst := newTestInstance(t, eventbus.NewRegistry())
	defer inst.Dispose()
	entered := make(chan struct{})
	release := make(chan struct{})
	_, err := inst.Init(context.Background(), ContextOverrides{Engine: battle.NewMemoryEngine(nil)}, Dependencies{
		EntryHandlers: map[string]fsm.EntryHandler{
			battle.StateMatchStart: func(*fsm.Context) error {
				close(entered)
				<-release
				return nil
			},
		},
	}, orchestrator.Hooks{})
	require.NoError(t, err)

	first := make(chan IntentResult, 1)
	go func() { first <- inst.DispatchIntent(context.Background(), battle.EventStartClicked, nil) }()
	<-entered

	type outcome struct {
		res   IntentResult
		state string
	}
	second := make(chan outcome, 1)
	go func() {
		res := inst.DispatchIntent(context.Background(), battle.EventFinalize, nil)
		second <- outcome{res: res, state: inst.Machine().State()}
	}()
	// Give the second intent time to arrive while matchStart is still entering.
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.True(t, (<-first).Accepted)
	got := <-second
	assert.False(t, got.res.Accepted)
	assert.Equal(t, ReasonIntentRejected, got.res.Reason)
	require.NotNil(t, got.res.Result)
	assert.False(t, got.res.Result.Queued)
	assert.Equal(t, fsm.ReasonNoMatchingTrigger, got.res.Result.Reason)
	assert.Equal(t, battle.StateMatchStart, got.state)
}
