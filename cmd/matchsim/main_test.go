package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/scheduler"
)

type decoded struct {
	Kind   string          `json:"kind"`
	At     int64           `json:"atMs"`
	Detail json.RawMessage `json:"detail"`
}

func runSim(t *testing.T, cfg simConfig) []decoded {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &buf, zerolog.Nop()))
	var out []decoded
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var d decoded
		require.NoError(t, json.Unmarshal(sc.Bytes(), &d))
		out = append(out, d)
	}
	require.NotEmpty(t, out)
	return out
}

func TestSimulatedMatchReachesMatchOver(t *testing.T) {
	lines := runSim(t, simConfig{Mode: scheduler.ModeImmediate, Rounds: 50, Seed: 7, PointsToWin: 2})

	last := lines[len(lines)-1]
	assert.Equal(t, "final", last.Kind)
	var scores battle.Scores
	require.NoError(t, json.Unmarshal(last.Detail, &scores))
	assert.True(t, scores.Player == 2 || scores.Opponent == 2)

	var states []string
	for _, l := range lines {
		if l.Kind != battle.EventControlStateChanged {
			continue
		}
		var ev battle.ControlStateChanged
		require.NoError(t, json.Unmarshal(l.Detail, &ev))
		states = append(states, ev.To)
	}
	require.NotEmpty(t, states)
	assert.Equal(t, battle.StateMatchStart, states[0])
	assert.Equal(t, battle.StateMatchOver, states[len(states)-1])
	assert.Contains(t, states, battle.StateMatchDecision)
}

func TestSimulatedMatchAbortsWhenRoundsRunOut(t *testing.T) {
	lines := runSim(t, simConfig{Mode: scheduler.ModeImmediate, Rounds: 0, Seed: 1})

	var tos []string
	for _, l := range lines {
		if l.Kind == battle.EventControlStateChanged {
			var ev battle.ControlStateChanged
			require.NoError(t, json.Unmarshal(l.Detail, &ev))
			tos = append(tos, ev.To)
		}
	}
	assert.Equal(t, []string{
		battle.StateMatchStart,
		battle.StateCooldown,
		battle.StateInterruptRound,
		battle.StateMatchOver,
	}, tos)
}

func TestVirtualRevealDelayStampsOutcomes(t *testing.T) {
	lines := runSim(t, simConfig{Mode: scheduler.ModeVirtual, Rounds: 1, Seed: 3, RevealDelay: 250 * time.Millisecond})

	var outcomes []decoded
	for _, l := range lines {
		if l.Kind == "outcome" {
			outcomes = append(outcomes, l)
		}
	}
	require.Len(t, outcomes, 1)
	assert.Equal(t, int64(250), outcomes[0].At)
}

func TestRunRejectsRealTimeMode(t *testing.T) {
	err := run(context.Background(), simConfig{Mode: scheduler.ModeRealTime}, &bytes.Buffer{}, zerolog.Nop())
	assert.Error(t, err)
}
