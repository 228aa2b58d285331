package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// LiveService is the live-mode read side of the orchestrator.
type LiveService interface {
	GetLiveData() (domain.LiveData, bool)
	GetFilteredHeadersBySport() []domain.MatchHeader
	GetEnrichedMatchOdds(matchID int64) []domain.EnrichedOdds
	IsStreaming() bool
}

// LiveHandler serves the live match state.
type LiveHandler struct {
	svc    LiveService
	logger *slog.Logger
}

// NewLiveHandler creates a LiveHandler.
func NewLiveHandler(svc LiveService, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{svc: svc, logger: logger}
}

type liveResponse struct {
	domain.LiveData
	Streaming bool `json:"streaming"`
}

// GetLive returns every header and quote of the live state.
// GET /api/live
func (h *LiveHandler) GetLive(w http.ResponseWriter, r *http.Request) {
	data, ok := h.svc.GetLiveData()
	if !ok {
		writeError(w, http.StatusNotFound, "no live data loaded")
		return
	}
	writeJSON(w, http.StatusOK, liveResponse{LiveData: data, Streaming: h.svc.IsStreaming()})
}

// GetHeaders returns the live headers of the session's sport.
// GET /api/live/headers
func (h *LiveHandler) GetHeaders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetFilteredHeadersBySport())
}

// GetMatchOdds returns the enriched quotes of one match.
// GET /api/live/matches/{id}/odds
func (h *LiveHandler) GetMatchOdds(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.GetEnrichedMatchOdds(id))
}
