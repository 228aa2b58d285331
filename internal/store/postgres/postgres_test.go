package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/odds?sslmode=disable",
		DSN(ClientConfig{Host: "db", Database: "odds", User: "u", Password: "p"}))
	assert.Equal(t, "postgres://u:p@db:6543/odds?sslmode=require",
		DSN(ClientConfig{Host: "db", Port: 6543, Database: "odds", User: "u", Password: "p", SSLMode: "require"}))
	assert.Equal(t, "postgres://explicit", DSN(ClientConfig{DSN: "postgres://explicit", Host: "ignored"}))
}

func TestMigrationFilesEmbedded(t *testing.T) {
	names, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_audit_log.sql", names[0])
}

func TestListQuery(t *testing.T) {
	q, args := listQuery(domain.ListOpts{})
	assert.Equal(t, "SELECT id, session_id, event, detail, created_at FROM audit_log WHERE 1=1 ORDER BY created_at DESC, id DESC", q)
	assert.Empty(t, args)

	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	q, args = listQuery(domain.ListOpts{SessionID: "s-1", Event: "reset", Since: &since, Limit: 10, Offset: 20})
	assert.Contains(t, q, "session_id = $1")
	assert.Contains(t, q, "event = $2")
	assert.Contains(t, q, "created_at >= $3")
	assert.Contains(t, q, "LIMIT $4")
	assert.Contains(t, q, "OFFSET $5")
	assert.Equal(t, []any{"s-1", "reset", since, 10, 20}, args)
}
