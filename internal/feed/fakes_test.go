package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOpener serves scripted streams. Each update attempt consumes the next
// script entry; the last entry repeats.
type fakeOpener struct {
	mu      sync.Mutex
	initial func(ctx context.Context) (io.ReadCloser, error)
	updates []func(ctx context.Context) (io.ReadCloser, error)
	sinces  []int64
}

func (f *fakeOpener) OpenInitial(ctx context.Context, _ string) (io.ReadCloser, error) {
	return f.initial(ctx)
}

func (f *fakeOpener) OpenUpdates(ctx context.Context, _ string, since int64) (io.ReadCloser, error) {
	f.mu.Lock()
	f.sinces = append(f.sinces, since)
	n := len(f.sinces)
	script := f.updates[min(n, len(f.updates))-1]
	f.mu.Unlock()
	return script(ctx)
}

func (f *fakeOpener) Sinces() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.sinces...)
}

func text(s string) func(context.Context) (io.ReadCloser, error) {
	return func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}

// blocking returns a stream that never produces data until closed.
func blocking() func(context.Context) (io.ReadCloser, error) {
	return func(context.Context) (io.ReadCloser, error) {
		r, _ := io.Pipe()
		return r, nil
	}
}

func failing(err error) func(context.Context) (io.ReadCloser, error) {
	return func(context.Context) (io.ReadCloser, error) {
		return nil, err
	}
}

// brokenReader yields its data and then a read error.
type brokenReader struct {
	data string
	done bool
}

func (b *brokenReader) Read(p []byte) (int, error) {
	if b.done {
		return 0, errors.New("connection reset by peer")
	}
	b.done = true
	return copy(p, b.data), nil
}

func (b *brokenReader) Close() error { return nil }
