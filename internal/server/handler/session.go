package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/oddstream/internal/orchestrator"
)

// SessionService is what the session handler needs from the orchestrator.
type SessionService interface {
	Initialize(ctx context.Context, req orchestrator.InitRequest) (*orchestrator.InitResult, error)
	Reset(ctx context.Context)
	Status() orchestrator.Status
}

// SessionHandler starts, stops and describes the odds session.
type SessionHandler struct {
	svc    SessionService
	logger *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(svc SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, logger: logger}
}

// initRequest is the POST /api/session body. Interval is a Go duration
// string such as "24h"; empty means the provider default.
type initRequest struct {
	Mode     string `json:"mode"`
	Sport    string `json:"sport"`
	Interval string `json:"interval"`
}

// Initialize starts a new session, replacing any current one.
// POST /api/session
func (h *SessionHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var body initRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	mode, err := orchestrator.ParseMode(body.Mode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sport := strings.TrimSpace(body.Sport)
	if sport == "" {
		writeError(w, http.StatusBadRequest, "sport is required")
		return
	}
	var interval time.Duration
	if body.Interval != "" {
		interval, err = time.ParseDuration(body.Interval)
		if err != nil || interval < 0 {
			writeError(w, http.StatusBadRequest, "invalid interval "+body.Interval)
			return
		}
	}

	res, err := h.svc.Initialize(r.Context(), orchestrator.InitRequest{
		Mode:     mode,
		Sport:    sport,
		Interval: interval,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "session initialize failed",
			slog.String("mode", string(mode)),
			slog.String("sport", sport),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	res.Snapshot = nil
	writeJSON(w, http.StatusCreated, res)
}

// Reset stops the current session.
// DELETE /api/session
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.svc.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Status reports the orchestrator state.
// GET /api/status
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}
