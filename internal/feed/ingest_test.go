package feed

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

const initialFeed = `{"sports":[{"name":"Football","code":"S","active":true}]}

: keepalive

{"headers":[{"id":1,"homeTeam":"Ajax","awayTeam":"PSV","sportCode":"S"}]}

this is not json

{"headers":[{"id":1,"status":"LIVE"}],"bets":[{"id":10,"matchId":1,"outcomes":{"1":{"value":1.85,"pickCode":"P1"}}}]}

{"headers":[{"id":"broken"}]}

END 1700000000

{"headers":[{"id":99}]}
`

func newTestIngestor(open func(context.Context) (io.ReadCloser, error), timeout time.Duration) *Ingestor {
	return NewIngestor(&fakeOpener{initial: open}, Framing{Delimiter: "\n\n"}, timeout, discard())
}

func TestFetchSnapshotComplete(t *testing.T) {
	in := newTestIngestor(text(initialFeed), time.Second)

	snap, err := in.FetchSnapshot(context.Background(), "S")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), snap.Watermark)
	require.Len(t, snap.Sports, 1)
	require.Len(t, snap.Headers, 1, "frames after the sentinel are not read")

	h := snap.Headers[0]
	assert.Equal(t, "Ajax", h.HomeTeam)
	assert.Equal(t, domain.LiveStatusLive, h.Status)

	require.Len(t, snap.Bets, 1)
	assert.Equal(t, "P1", snap.Bets[0].Outcomes["1"].PickCode)
}

func TestFetchSnapshotCRLF(t *testing.T) {
	in := newTestIngestor(text("data: {\"headers\":[{\"id\":5}]}\r\n\r\ndata: END 12\r\n\r\n"), time.Second)
	snap, err := in.FetchSnapshot(context.Background(), "S")
	require.NoError(t, err)
	assert.Equal(t, int64(12), snap.Watermark)
	assert.Len(t, snap.Headers, 1)
}

func TestFetchSnapshotSkipsOversizedFrame(t *testing.T) {
	in := NewIngestor(&fakeOpener{initial: text(strings.Repeat("x", 300) + "\n\n" +
		`{"headers":[{"id":7}]}` + "\n\nEND 3\n\n")},
		Framing{Delimiter: "\n\n", MaxFrameBytes: 128}, time.Second, discard())

	snap, err := in.FetchSnapshot(context.Background(), "S")
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Watermark)
	require.Len(t, snap.Headers, 1)
	assert.Equal(t, int64(7), snap.Headers[0].ID)
}

func TestFetchSnapshotWithoutSentinel(t *testing.T) {
	in := newTestIngestor(text(`{"headers":[{"id":1}]}`+"\n\n"), time.Second)
	_, err := in.FetchSnapshot(context.Background(), "S")
	require.ErrorIs(t, err, domain.ErrIncompleteSnapshot)
	assert.NotErrorIs(t, err, domain.ErrTransport)
	assert.NotErrorIs(t, err, domain.ErrAborted)
}

func TestFetchSnapshotReadError(t *testing.T) {
	in := newTestIngestor(func(context.Context) (io.ReadCloser, error) {
		return &brokenReader{data: `{"headers":[{"id":1}]}` + "\n\n"}, nil
	}, time.Second)
	_, err := in.FetchSnapshot(context.Background(), "S")
	assert.ErrorIs(t, err, domain.ErrIncompleteSnapshot)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestFetchSnapshotOpenError(t *testing.T) {
	in := newTestIngestor(failing(errors.New("dial tcp: refused")), time.Second)
	_, err := in.FetchSnapshot(context.Background(), "S")
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.NotErrorIs(t, err, domain.ErrIncompleteSnapshot)
}

func TestFetchSnapshotAborted(t *testing.T) {
	in := newTestIngestor(blocking(), time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := in.FetchSnapshot(ctx, "S")
	assert.ErrorIs(t, err, domain.ErrAborted)
	assert.NotErrorIs(t, err, domain.ErrIncompleteSnapshot)
}

func TestFetchSnapshotTimeout(t *testing.T) {
	in := newTestIngestor(blocking(), 30*time.Millisecond)
	_, err := in.FetchSnapshot(context.Background(), "S")
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, domain.ErrIncompleteSnapshot)
	assert.NotErrorIs(t, err, domain.ErrAborted)
}
