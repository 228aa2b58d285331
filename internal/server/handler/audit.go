package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// AuditHandler lists the session lifecycle audit log.
type AuditHandler struct {
	store  domain.AuditStore
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(store domain.AuditStore, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{store: store, logger: logger}
}

// ListAudit returns audit entries newest first. Supports limit, offset,
// session, event and since (RFC 3339) query parameters.
// GET /api/audit
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since: "+err.Error())
			return
		}
		opts.Since = &t
	}

	entries, err := h.store.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}
