package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/execution-hub/matchflow/internal/api/http"
	"github.com/execution-hub/matchflow/internal/application/match"
	"github.com/execution-hub/matchflow/internal/application/orchestrator"
	"github.com/execution-hub/matchflow/internal/config"
	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/fsm"
	"github.com/execution-hub/matchflow/internal/infrastructure/postgres"
	"github.com/execution-hub/matchflow/internal/infrastructure/sse"
	"github.com/execution-hub/matchflow/internal/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(cfg.LogLevel)
	if cfg.LogPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	def, err := loadDefinition(cfg.StateTablePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("state table error")
	}

	ctx := context.Background()
	var recorder battle.TransitionRecorder
	if cfg.PersistenceEnabled() {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, 10)
		if err != nil {
			logger.Fatal().Err(err).Msg("db error")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool, migrations.FS, "."); err != nil {
			logger.Fatal().Err(err).Msg("migration error")
		}
		recorder = postgres.NewTransitionRepository(pool)
	} else {
		logger.Info().Msg("DATABASE_URL not set, transition history disabled")
	}

	sseHub := sse.NewHub(logger)
	manager := match.NewManager(match.Options{
		Orchestrator: orchestrator.Config{
			CatalogVersion:     cfg.CatalogVersion,
			TransitionLogLimit: cfg.TransitionLogLimit,
			WaitTimeout:        cfg.WaitTimeout,
		},
		RevealDelay: cfg.OpponentRevealDelay,
	}, logger)

	apiServer := httpapi.NewServer(manager, sseHub, httpapi.Options{
		TokenHash:     cfg.APITokenHash,
		Definition:    def,
		FeatureFlags:  cfg.FeatureFlags,
		PointsToWin:   cfg.PointsToWin,
		SchedulerMode: cfg.SchedulerMode,
		Recorder:      recorder,
		WaitTimeout:   cfg.WaitTimeout,
	}, logger)

	httpServer := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     apiServer.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// start server
	go func() {
		logger.Info().
			Str("addr", cfg.ServerAddr).
			Str("scheduler", string(cfg.SchedulerMode)).
			Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sseHub.Stop()
	_ = httpServer.Shutdown(ctxShutdown)
	manager.DisposeAll()
	logger.Info().Msg("server stopped")
}

func loadDefinition(path string) (*fsm.Definition, error) {
	if path == "" {
		return battle.DefaultDefinition()
	}
	table, err := fsm.LoadTable(path)
	if err != nil {
		return nil, err
	}
	return table.Definition()
}
