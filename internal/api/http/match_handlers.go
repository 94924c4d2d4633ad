package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/execution-hub/matchflow/internal/application/match"
	"github.com/execution-hub/matchflow/internal/application/orchestrator"
	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/infrastructure/sse"
	"github.com/execution-hub/matchflow/internal/scheduler"
)

type createMatchRequest struct {
	Seed        *int64   `json:"seed"`
	PointsToWin int      `json:"pointsToWin"`
	Flags       []string `json:"flags"`
}

type matchResponse struct {
	MatchID     uuid.UUID                      `json:"matchId"`
	MatchToken  string                         `json:"matchToken,omitempty"`
	State       string                         `json:"state"`
	Transitions []orchestrator.TransitionEntry `json:"transitions,omitempty"`
}

type intentRequest struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type intentResponse struct {
	match.IntentResult
	Error string `json:"error,omitempty"`
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
			return
		}
	}
	if req.PointsToWin < 0 {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "pointsToWin must be positive")
		return
	}
	points := req.PointsToWin
	if points == 0 {
		points = s.opts.PointsToWin
	}

	flags := battle.ParseFlags(s.opts.FeatureFlags)
	for _, name := range req.Flags {
		if name = strings.TrimSpace(name); name != "" {
			flags.Set(name, true)
		}
	}

	var sched scheduler.Scheduler
	if s.opts.SchedulerMode != scheduler.ModeRealTime && s.opts.SchedulerMode != "" {
		created, err := scheduler.New(s.opts.SchedulerMode, s.logger)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
			return
		}
		sched = created
	}

	id := uuid.New()
	inst := s.manager.Create(match.Options{
		ID:        id,
		Scheduler: sched,
		Presenter: sse.NewPresenter(s.sseHub, id),
	})
	s.sseHub.Attach(id, inst.Bus())

	m, err := inst.Init(r.Context(), match.ContextOverrides{
		Engine: battle.NewMemoryEngine(req.Seed),
		Flags:  flags,
		Store:  map[string]any{battle.StorePointsToWin: points},
	}, match.Dependencies{
		Definition: s.opts.Definition,
		Recorder:   s.opts.Recorder,
	}, orchestrator.Hooks{})
	if err != nil {
		s.sseHub.Detach(id)
		_ = s.manager.Dispose(id)
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, matchResponse{
		MatchID:    id,
		MatchToken: inst.MatchToken(),
		State:      m.State(),
	})
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instanceFromRequest(w, r)
	if !ok {
		return
	}
	resp := matchResponse{MatchID: inst.ID(), MatchToken: inst.MatchToken()}
	if m := inst.Machine(); m != nil {
		resp.State = m.State()
	}
	if log := inst.Orchestrator().Log(); log != nil {
		resp.Transitions = log.Entries()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteMatch(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "matchId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid match id")
		return
	}
	s.sseHub.Detach(id)
	if err := s.manager.Dispose(id); err != nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dispatchIntent(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instanceFromRequest(w, r)
	if !ok {
		return
	}
	var req intentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}

	res := inst.DispatchIntent(r.Context(), req.Event, req.Payload)
	status := http.StatusOK
	switch {
	case res.Accepted:
	case res.Reason == match.ReasonInvalidIntent:
		status = http.StatusBadRequest
	case res.Reason == match.ReasonDispatchException:
		status = http.StatusInternalServerError
	default:
		status = http.StatusConflict
	}
	respondJSON(w, status, intentResponse{IntentResult: res, Error: res.ErrorMessage()})
}

func (s *Server) setVisibility(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instanceFromRequest(w, r)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if !inst.SetHidden(req.Hidden) {
		respondError(w, http.StatusConflict, "INVALID_STATE", "lifecycle is externally managed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"hidden": req.Hidden})
}

func (s *Server) waitForState(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instanceFromRequest(w, r)
	if !ok {
		return
	}
	target := strings.TrimSpace(r.URL.Query().Get("state"))
	if target == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "state is required")
		return
	}
	timeout := s.opts.WaitTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid timeout")
			return
		}
		timeout = d
	}

	c, err := inst.Orchestrator().WaitForState(target, timeout)
	if err != nil {
		respondError(w, http.StatusConflict, "INVALID_STATE", err.Error())
		return
	}
	err = c.Wait(r.Context())
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]interface{}{"state": target, "reached": true})
	case errors.Is(err, orchestrator.ErrWaitTimeout):
		respondError(w, http.StatusRequestTimeout, "TIMEOUT", err.Error())
	default:
		respondError(w, http.StatusConflict, "INVALID_STATE", err.Error())
	}
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.Recorder == nil {
		respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "transition history is disabled")
		return
	}
	id, err := parseUUIDParam(r, "matchId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid match id")
		return
	}
	records, err := s.opts.Recorder.ListTransitions(r.Context(), id, parseLimit(r, 100))
	if err != nil {
		s.logger.Warn().Err(err).Str("match_id", id.String()).Msg("failed to list transitions")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list transitions")
		return
	}
	if records == nil {
		records = []*battle.TransitionRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"matchId": id, "transitions": records})
}

func (s *Server) streamMatch(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instanceFromRequest(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}

	client := sse.NewClient(inst.ID())
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(client.ClientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	// Send an initial comment to flush headers.
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg, open := <-client.MessageChan:
			if !open || msg == nil {
				return
			}
			payload, _ := json.Marshal(msg)
			_, _ = w.Write([]byte("event: " + msg.Event + "\ndata: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) instanceFromRequest(w http.ResponseWriter, r *http.Request) (*match.Instance, bool) {
	id, err := parseUUIDParam(r, "matchId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid match id")
		return nil, false
	}
	inst, err := s.manager.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return nil, false
	}
	return inst, true
}
