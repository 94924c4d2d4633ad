package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/execution-hub/matchflow/internal/scheduler"
)

// Config holds service configuration.
type Config struct {
	ServerAddr          string
	DatabaseURL         string
	SchedulerMode       scheduler.Mode
	CatalogVersion      string
	StateTablePath      string
	FeatureFlags        string
	OpponentRevealDelay time.Duration
	PointsToWin         int
	WaitTimeout         time.Duration
	TransitionLogLimit  int
	APITokenHash        string
	LogLevel            zerolog.Level
	LogPretty           bool
}

// PersistenceEnabled reports whether a database is configured.
func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	mode, err := scheduler.ParseMode(getenv("SCHEDULER_MODE", string(scheduler.ModeRealTime)))
	if err != nil {
		return nil, fmt.Errorf("SCHEDULER_MODE: %w", err)
	}
	level, err := zerolog.ParseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return &Config{
		ServerAddr:          getenv("SERVER_ADDR", "0.0.0.0:8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SchedulerMode:       mode,
		CatalogVersion:      getenv("CATALOG_VERSION", "v1"),
		StateTablePath:      os.Getenv("STATE_TABLE_PATH"),
		FeatureFlags:        os.Getenv("FEATURE_FLAGS"),
		OpponentRevealDelay: parseDuration(getenv("OPPONENT_REVEAL_DELAY", "0s"), 0),
		PointsToWin:         parseInt(getenv("POINTS_TO_WIN", "3"), 3),
		WaitTimeout:         parseDuration(getenv("WAIT_TIMEOUT", "10s"), 10*time.Second),
		TransitionLogLimit:  parseInt(getenv("TRANSITION_LOG_LIMIT", "20"), 20),
		APITokenHash:        os.Getenv("API_TOKEN_HASH"),
		LogLevel:            level,
		LogPretty:           parseBool(getenv("LOG_PRETTY", "false"), false),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
