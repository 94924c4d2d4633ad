// Command matchsim plays a scripted match on a headless scheduler and prints
// every control state change as a JSON line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/execution-hub/matchflow/internal/application/match"
	"github.com/execution-hub/matchflow/internal/application/orchestrator"
	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/eventbus"
	"github.com/execution-hub/matchflow/internal/scheduler"
)

func main() {
	mode := flag.String("mode", "virtual", "scheduler mode: immediate|virtual")
	rounds := flag.Int("rounds", 9, "maximum rounds before the match is aborted")
	seed := flag.Int64("seed", 1, "seed for round outcomes")
	points := flag.Int("points", battle.DefaultPointsToWin, "points needed to win")
	revealDelay := flag.Float64("reveal-delay", 0, "opponent reveal delay in milliseconds")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	cfg := simConfig{
		Mode:        scheduler.Mode(*mode),
		Rounds:      *rounds,
		Seed:        *seed,
		PointsToWin: *points,
		RevealDelay: scheduler.FromMillis(*revealDelay),
	}
	if err := run(context.Background(), cfg, os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "matchsim:", err)
		os.Exit(1)
	}
}

type simConfig struct {
	Mode        scheduler.Mode
	Rounds      int
	Seed        int64
	PointsToWin int
	RevealDelay time.Duration
}

type line struct {
	Kind   string `json:"kind"`
	At     int64  `json:"atMs"`
	Detail any    `json:"detail"`
}

type printer struct {
	enc   *json.Encoder
	sched scheduler.Scheduler
}

func (p *printer) print(kind string, detail any) {
	_ = p.enc.Encode(line{Kind: kind, At: p.sched.Now().Milliseconds(), Detail: detail})
}

func (p *printer) ShowOutcome(ev battle.RoundEvaluated) { p.print("outcome", ev) }

func (p *printer) ApplyTransition(any) {}

func run(ctx context.Context, cfg simConfig, out io.Writer, logger zerolog.Logger) error {
	mode, err := scheduler.ParseMode(string(cfg.Mode))
	if err != nil {
		return err
	}
	if mode == scheduler.ModeRealTime {
		return fmt.Errorf("matchsim needs a headless scheduler, got %q", mode)
	}
	sched, err := scheduler.New(mode, logger)
	if err != nil {
		return err
	}
	virtual, _ := sched.(*scheduler.Virtual)

	p := &printer{enc: json.NewEncoder(out), sched: sched}
	flags := battle.NewFlagSet()
	if cfg.RevealDelay > 0 {
		flags.Set(battle.FlagOpponentDelayMessage, true)
	}
	points := cfg.PointsToWin
	if points <= 0 {
		points = battle.DefaultPointsToWin
	}

	inst := match.Create(match.Options{
		Registry:    eventbus.NewRegistry(),
		Scheduler:   sched,
		Presenter:   p,
		RevealDelay: cfg.RevealDelay,
		Logger:      logger,
	})
	defer inst.Dispose()
	inst.Bus().On(battle.EventControlStateChanged, func(e eventbus.Event) {
		p.print(e.Name, e.Detail)
	})

	seed := cfg.Seed
	engine := battle.NewMemoryEngine(&seed)
	if _, err := inst.Init(ctx, match.ContextOverrides{
		Engine: engine,
		Flags:  flags,
		Store:  map[string]any{battle.StorePointsToWin: points},
	}, match.Dependencies{}, orchestrator.Hooks{}); err != nil {
		return err
	}

	send := func(event string, payload any) error {
		res := inst.DispatchIntent(ctx, event, payload)
		if !res.Accepted {
			return fmt.Errorf("%s rejected: %s %s", event, res.Reason, res.ErrorMessage())
		}
		return nil
	}
	state := func() string { return inst.Machine().State() }

	if err := send(battle.EventStartClicked, nil); err != nil {
		return err
	}
	if err := send(battle.EventReady, nil); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	for round := 0; round < cfg.Rounds && state() != battle.StateMatchDecision; round++ {
		if state() == battle.StateCooldown {
			if err := send(battle.EventReady, nil); err != nil {
				return err
			}
		}
		for _, ev := range []string{battle.EventCardsRevealed, battle.EventStatSelected} {
			if err := send(ev, nil); err != nil {
				return err
			}
		}
		if err := send(battle.EventOutcome, randomOutcome(rng)); err != nil {
			return err
		}
		if virtual != nil {
			virtual.AdvanceBy(cfg.RevealDelay)
		}
		if err := send(battle.EventContinue, nil); err != nil {
			return err
		}
	}

	if state() == battle.StateMatchDecision {
		if err := send(battle.EventFinalize, nil); err != nil {
			return err
		}
	} else {
		if err := send(battle.EventInterrupt, nil); err != nil {
			return err
		}
		if err := send(battle.EventAbortMatch, nil); err != nil {
			return err
		}
	}
	p.print("final", engine.Scores())
	return nil
}

var stats = []string{"power", "speed", "technique", "kumikata", "newaza"}

func randomOutcome(rng *rand.Rand) battle.RoundOutcome {
	stat := stats[rng.Intn(len(stats))]
	player := float64(rng.Intn(10))
	opponent := float64(rng.Intn(10))
	winner := battle.WinnerDraw
	switch {
	case player > opponent:
		winner = battle.WinnerPlayer
	case opponent > player:
		winner = battle.WinnerOpponent
	}
	return battle.RoundOutcome{
		Winner:        winner,
		Stat:          stat,
		PlayerValue:   player,
		OpponentValue: opponent,
		Message:       fmt.Sprintf("%s: %.0f vs %.0f", stat, player, opponent),
	}
}
