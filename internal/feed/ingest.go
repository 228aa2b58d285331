// Package feed reads the provider's text-framed streaming feeds: the
// one-shot initial snapshot and the long-lived update subscription.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/oddstream/internal/domain"
	"github.com/alanyoungcy/oddstream/internal/livestate"
)

// StreamOpener opens the provider's streaming feeds. The returned body is
// read until EOF; closing it aborts the stream.
type StreamOpener interface {
	OpenInitial(ctx context.Context, sport string) (io.ReadCloser, error)
	OpenUpdates(ctx context.Context, sport string, since int64) (io.ReadCloser, error)
}

// Ingestor performs the one-shot bulk fetch of the initial feed.
type Ingestor struct {
	opener  StreamOpener
	framing Framing
	timeout time.Duration
	logger  *slog.Logger
}

// NewIngestor creates an Ingestor. A timeout of zero disables the bound.
func NewIngestor(opener StreamOpener, framing Framing, timeout time.Duration, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		opener:  opener,
		framing: framing,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "ingestor")),
	}
}

// FetchSnapshot reads the initial feed for sport until the END sentinel and
// returns the aggregated snapshot with the sentinel's watermark.
//
// Cancelling ctx yields ErrAborted. A stream that closes before the sentinel
// yields ErrIncompleteSnapshot; read failures and the timeout additionally
// match ErrTransport.
func (in *Ingestor) FetchSnapshot(ctx context.Context, sport string) (domain.Snapshot, error) {
	fetchCtx := ctx
	if in.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, in.timeout)
		defer cancel()
	}

	start := time.Now()
	body, err := in.opener.OpenInitial(fetchCtx, sport)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Snapshot{}, fmt.Errorf("feed: open initial: %w: %w", domain.ErrAborted, ctx.Err())
		}
		if errors.Is(err, domain.ErrTransport) {
			return domain.Snapshot{}, fmt.Errorf("feed: open initial: %w", err)
		}
		return domain.Snapshot{}, fmt.Errorf("feed: open initial: %w: %w", domain.ErrTransport, err)
	}
	defer body.Close()
	stop := context.AfterFunc(fetchCtx, func() { body.Close() })
	defer stop()

	var (
		sports  = make(map[string]domain.SportEntry)
		headers = make(map[int64]domain.MatchHeader)
		odds    = make(map[int64]domain.OddsQuote)
		frames  int
		skipped int
	)

	fr := newFrameReader(body, in.framing)
	for fr.Scan() {
		f := fr.Frame()
		frames++
		switch f.kind {
		case frameOversized:
			skipped++
			in.logger.DebugContext(ctx, "initial frame skipped", slog.String("error", "frame exceeds max_frame_bytes"))
		case frameSentinel:
			snap := domain.Snapshot{
				Sports:    sortedSports(sports),
				Headers:   sortedHeaders(headers),
				Bets:      sortedOdds(odds),
				Watermark: f.watermark,
			}
			in.logger.InfoContext(ctx, "initial snapshot complete",
				slog.String("sport", sport),
				slog.Int("headers", len(snap.Headers)),
				slog.Int("bets", len(snap.Bets)),
				slog.Int("frames", frames),
				slog.Int("skipped", skipped),
				slog.Int64("watermark", snap.Watermark),
				slog.Duration("elapsed", time.Since(start)),
			)
			return snap, nil
		case framePayload:
			p, err := DecodePayload(f.payload)
			if err != nil {
				skipped++
				in.logger.DebugContext(ctx, "initial frame skipped", slog.String("error", err.Error()))
				continue
			}
			for _, s := range p.Sports {
				sports[s.Code] = s
			}
			livestate.MergeHeaders(headers, p.Headers)
			livestate.MergeOdds(odds, p.Bets)
		default:
			skipped++
		}
	}

	readErr := fr.Err()
	switch {
	case ctx.Err() != nil:
		return domain.Snapshot{}, fmt.Errorf("feed: initial feed: %w: %w", domain.ErrAborted, ctx.Err())
	case fetchCtx.Err() != nil:
		return domain.Snapshot{}, fmt.Errorf("feed: initial feed timed out after %s: %w: %w",
			in.timeout, domain.ErrIncompleteSnapshot, domain.ErrTransport)
	case readErr != nil:
		return domain.Snapshot{}, fmt.Errorf("feed: initial feed: %w: %w: %w",
			domain.ErrIncompleteSnapshot, domain.ErrTransport, readErr)
	default:
		return domain.Snapshot{}, fmt.Errorf("feed: initial feed after %d frames: %w", frames, domain.ErrIncompleteSnapshot)
	}
}

func sortedSports(m map[string]domain.SportEntry) []domain.SportEntry {
	out := make([]domain.SportEntry, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func sortedHeaders(m map[int64]domain.MatchHeader) []domain.MatchHeader {
	out := make([]domain.MatchHeader, 0, len(m))
	for _, h := range m {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedOdds(m map[int64]domain.OddsQuote) []domain.OddsQuote {
	out := make([]domain.OddsQuote, 0, len(m))
	for _, q := range m {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
