package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	SessionID string
	Event     string
	Limit     int
	Offset    int
	Since     *time.Time
	Until     *time.Time
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	SessionID string         `json:"sessionId"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AuditLogger appends lifecycle events to an audit trail.
type AuditLogger interface {
	Log(ctx context.Context, sessionID, event string, detail map[string]any) error
}

// AuditStore persists an append-only audit log of session lifecycle events.
// It is never read back to restore state.
type AuditStore interface {
	AuditLogger
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
