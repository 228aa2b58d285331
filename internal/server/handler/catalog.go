package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/oddstream/internal/catalog"
	"github.com/alanyoungcy/oddstream/internal/domain"
)

// CatalogService exposes the session's reference data and scheduled matches.
type CatalogService interface {
	GetCatalogView() (*catalog.View, bool)
	GetEnrichedScheduledMatches() []domain.EnrichedScheduledMatch
}

// CatalogHandler serves the catalog view and the scheduled matches.
type CatalogHandler struct {
	svc    CatalogService
	logger *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(svc CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, logger: logger}
}

// GetCatalog returns the per-sport catalog view.
// GET /api/catalog
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	view, ok := h.svc.GetCatalogView()
	if !ok {
		writeDomainError(w, domain.ErrNotInitialized)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetScheduled returns the enriched scheduled matches.
// GET /api/scheduled
func (h *CatalogHandler) GetScheduled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetEnrichedScheduledMatches())
}
