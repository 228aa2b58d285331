package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// AuditStore implements domain.AuditStore over the audit_log table. Rows are
// only appended; nothing reads them back to rebuild session state.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Log appends one lifecycle event. detail is stored as JSONB.
func (s *AuditStore) Log(ctx context.Context, sessionID, event string, detail map[string]any) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal audit detail: %w", err)
	}

	const query = `INSERT INTO audit_log (session_id, event, detail) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, query, sessionID, event, detailJSON); err != nil {
		return fmt.Errorf("postgres: log audit event %s: %w", event, err)
	}
	return nil
}

// List returns audit entries newest first.
func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	query, args := listQuery(opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detailJSON []byte
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Event, &detailJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan audit entry: %w", err)
		}
		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal audit detail: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list audit entries rows: %w", err)
	}
	return entries, nil
}

// listQuery builds the filtered SELECT for List with positional arguments.
func listQuery(opts domain.ListOpts) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(`SELECT id, session_id, event, detail, created_at FROM audit_log WHERE 1=1`)
	arg := func(clause string, v any) {
		args = append(args, v)
		fmt.Fprintf(&b, clause, len(args))
	}

	if opts.SessionID != "" {
		arg(" AND session_id = $%d", opts.SessionID)
	}
	if opts.Event != "" {
		arg(" AND event = $%d", opts.Event)
	}
	if opts.Since != nil {
		arg(" AND created_at >= $%d", *opts.Since)
	}
	if opts.Until != nil {
		arg(" AND created_at <= $%d", *opts.Until)
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if opts.Limit > 0 {
		arg(" LIMIT $%d", opts.Limit)
	}
	if opts.Offset > 0 {
		arg(" OFFSET $%d", opts.Offset)
	}
	return b.String(), args
}

var _ domain.AuditStore = (*AuditStore)(nil)
