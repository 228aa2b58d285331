package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// SnapshotArchiver keeps a write-only copy of committed data for offline
// analysis.
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, sessionID, sport string, snap Snapshot) error
	ArchiveScheduled(ctx context.Context, sessionID, sport string, matches []ScheduledMatch) error
}
