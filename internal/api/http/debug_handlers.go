package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/execution-hub/matchflow/internal/scheduler"
)

type injectErrorRequest struct {
	Message string `json:"message"`
}

// injectError forwards a message to the match engine's error channel.
func (s *Server) injectError(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instanceFromRequest(w, r)
	if !ok {
		return
	}
	var req injectErrorRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "message is required")
		return
	}
	mc := inst.Context()
	if mc == nil || mc.Engine == nil {
		respondError(w, http.StatusConflict, "INVALID_STATE", "match has no engine")
		return
	}
	mc.Engine.InjectError(msg)
	s.logger.Info().Str("match_id", inst.ID().String()).Str("message", msg).Msg("engine error injected")
	respondJSON(w, http.StatusAccepted, map[string]interface{}{"injected": msg})
}

// advanceClock moves a virtual match clock forward and runs due callbacks.
func (s *Server) advanceClock(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instanceFromRequest(w, r)
	if !ok {
		return
	}
	virtual, ok := inst.Scheduler().(*scheduler.Virtual)
	if !ok {
		respondError(w, http.StatusConflict, "INVALID_STATE", "match clock is not virtual")
		return
	}
	by, err := time.ParseDuration(r.URL.Query().Get("by"))
	if err != nil || by < 0 {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid duration")
		return
	}
	ran := virtual.AdvanceBy(by)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ran":     ran,
		"nowMs":   virtual.Now().Milliseconds(),
		"pending": virtual.Pending(),
	})
}
