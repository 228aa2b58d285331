package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// multipartThreshold is the payload size above which uploads go through the
// multipart manager instead of a single PutObject.
const multipartThreshold = 32 << 20

// Archiver implements domain.SnapshotArchiver by uploading each committed
// snapshot and each scheduled fetch as JSONL objects. Archived objects are
// write-only; nothing in the service reads them back.
//
// Key layout:
//
//	{prefix}/{sport}/{YYYY-MM-DD}/{sessionID}/live-{HHMMSS}-headers.jsonl
//	{prefix}/{sport}/{YYYY-MM-DD}/{sessionID}/live-{HHMMSS}-odds.jsonl
//	{prefix}/{sport}/{YYYY-MM-DD}/{sessionID}/scheduled-{HHMMSS}.jsonl
type Archiver struct {
	writer domain.BlobWriter
	prefix string
	audit  domain.AuditLogger
	now    func() time.Time
}

// NewArchiver creates an Archiver writing through writer. audit may be nil.
func NewArchiver(writer domain.BlobWriter, prefix string, audit domain.AuditLogger) *Archiver {
	return &Archiver{writer: writer, prefix: prefix, audit: audit, now: time.Now}
}

// ArchiveSnapshot uploads the headers and odds of a committed live snapshot.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, sessionID, sport string, snap domain.Snapshot) error {
	at := a.now().UTC()
	stem := a.stem(sessionID, sport, at) + "live-" + at.Format("150405")

	headersKey := stem + "-headers.jsonl"
	if err := upload(ctx, a, headersKey, snap.Headers); err != nil {
		return fmt.Errorf("s3blob: archive snapshot headers: %w", err)
	}
	oddsKey := stem + "-odds.jsonl"
	if err := upload(ctx, a, oddsKey, snap.Bets); err != nil {
		return fmt.Errorf("s3blob: archive snapshot odds: %w", err)
	}

	a.record(ctx, sessionID, "archive.snapshot", map[string]any{
		"sport":     sport,
		"headers":   len(snap.Headers),
		"odds":      len(snap.Bets),
		"watermark": snap.Watermark,
		"path":      stem,
	})
	return nil
}

// ArchiveScheduled uploads one scheduled-matches fetch.
func (a *Archiver) ArchiveScheduled(ctx context.Context, sessionID, sport string, matches []domain.ScheduledMatch) error {
	at := a.now().UTC()
	key := a.stem(sessionID, sport, at) + "scheduled-" + at.Format("150405") + ".jsonl"
	if err := upload(ctx, a, key, matches); err != nil {
		return fmt.Errorf("s3blob: archive scheduled: %w", err)
	}

	a.record(ctx, sessionID, "archive.scheduled", map[string]any{
		"sport":   sport,
		"matches": len(matches),
		"path":    key,
	})
	return nil
}

func (a *Archiver) stem(sessionID, sport string, at time.Time) string {
	return path.Join(a.prefix, sport, at.Format("2006-01-02"), sessionID) + "/"
}

func (a *Archiver) put(ctx context.Context, key string, buf []byte) error {
	if len(buf) > multipartThreshold {
		return a.writer.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize)
	}
	return a.writer.Put(ctx, key, bytes.NewReader(buf), "application/x-ndjson")
}

// upload encodes records as JSONL and stores them under key.
func upload[T any](ctx context.Context, a *Archiver, key string, records []T) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return err
	}
	return a.put(ctx, key, buf)
}

// record writes an audit row; archive bookkeeping never fails the upload.
func (a *Archiver) record(ctx context.Context, sessionID, event string, detail map[string]any) {
	if a.audit == nil {
		return
	}
	_ = a.audit.Log(ctx, sessionID, event, detail)
}

// marshalJSONL encodes each record as one compact JSON line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.SnapshotArchiver = (*Archiver)(nil)
