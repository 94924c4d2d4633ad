package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/execution-hub/matchflow/internal/application/match"
	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/fsm"
	"github.com/execution-hub/matchflow/internal/infrastructure/sse"
	"github.com/execution-hub/matchflow/internal/scheduler"
)

// Options configure the HTTP control API.
type Options struct {
	// TokenHash is a bcrypt hash of the API bearer token. Empty disables auth.
	TokenHash     string
	Definition    *fsm.Definition
	FeatureFlags  string
	PointsToWin   int
	SchedulerMode scheduler.Mode
	// Recorder persists transitions. Nil disables the history endpoint.
	Recorder       battle.TransitionRecorder
	WaitTimeout    time.Duration
	RequestTimeout time.Duration
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	manager *match.Manager
	sseHub  *sse.Hub
	opts    Options
	logger  zerolog.Logger
}

func NewServer(manager *match.Manager, sseHub *sse.Hub, opts Options, logger zerolog.Logger) *Server {
	if opts.PointsToWin <= 0 {
		opts.PointsToWin = battle.DefaultPointsToWin
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 10 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Server{
		manager: manager,
		sseHub:  sseHub,
		opts:    opts,
		logger:  logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.requireToken)

		r.Route("/matches", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(s.opts.RequestTimeout))
				r.Post("/", s.createMatch)
				r.Get("/{matchId}", s.getMatch)
				r.Delete("/{matchId}", s.deleteMatch)
				r.Post("/{matchId}/intents", s.dispatchIntent)
				r.Post("/{matchId}/visibility", s.setVisibility)
				r.Get("/{matchId}/history", s.getHistory)
				r.Post("/{matchId}/debug/errors", s.injectError)
				r.Post("/{matchId}/debug/advance", s.advanceClock)
			})
			// Long-lived requests bound themselves.
			r.Get("/{matchId}/wait", s.waitForState)
			r.Get("/{matchId}/stream", s.streamMatch)
		})
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"matches": s.manager.Len(),
	})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimit(r *http.Request, def int) int {
	val := strings.TrimSpace(r.URL.Query().Get("limit"))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
