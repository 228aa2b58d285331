package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/oddstream/internal/domain"
	"github.com/alanyoungcy/oddstream/internal/livestate"
)

// State is a state of the subscription loop.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateStreaming  State = "streaming"
	StateEnded      State = "ended"
	StateFailed     State = "failed"
	StateBackoff    State = "backoff"
	StateStopped    State = "stopped"
)

// Default reconnect delays after a graceful end and after a failure.
const (
	DefaultEndedBackoff  = time.Second
	DefaultFailedBackoff = 5 * time.Second
)

// SubscriptionConfig configures a Subscription.
type SubscriptionConfig struct {
	SessionID     string
	Sport         string
	Framing       Framing
	EndedBackoff  time.Duration
	FailedBackoff time.Duration
}

// Subscription keeps the update feed connected and applies every patch to
// the live store, reconnecting after the stream ends or fails until Stop is
// called.
type Subscription struct {
	opener StreamOpener
	store  *livestate.Store
	queue  *Queue
	cfg    SubscriptionConfig
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc

	started  atomic.Bool
	stopped  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
	seq      atomic.Uint64
	attempts atomic.Uint64
}

// NewSubscription creates an idle subscription. queue may be nil when no
// observers are attached.
func NewSubscription(opener StreamOpener, store *livestate.Store, queue *Queue, cfg SubscriptionConfig, logger *slog.Logger) *Subscription {
	if cfg.EndedBackoff <= 0 {
		cfg.EndedBackoff = DefaultEndedBackoff
	}
	if cfg.FailedBackoff <= 0 {
		cfg.FailedBackoff = DefaultFailedBackoff
	}
	return &Subscription{
		opener: opener,
		store:  store,
		queue:  queue,
		cfg:    cfg,
		logger: logger.With(
			slog.String("component", "subscription"),
			slog.String("sport", cfg.Sport),
		),
		state: StateIdle,
		done:  make(chan struct{}),
	}
}

// Start launches the loop in the background. The store must hold a loaded
// snapshot whose watermark the first connection resumes from.
func (s *Subscription) Start(ctx context.Context) error {
	if s.stopped.Load() {
		return fmt.Errorf("feed: start subscription: %w", domain.ErrAborted)
	}
	view := s.store.Snapshot()
	if !view.Loaded() {
		return fmt.Errorf("feed: start subscription: %w", domain.ErrNoWatermark)
	}
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("feed: subscription already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop aborts any in-flight stream and prevents further reconnects. It is
// safe to call from any goroutine and more than once.
func (s *Subscription) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	s.state = StateStopped
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s.started.CompareAndSwap(false, true) {
		s.finish()
	}
	s.logger.Info("subscription stopped")
}

// Done is closed once the loop has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// State returns the current loop state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the loop is running and has not been stopped.
func (s *Subscription) Active() bool {
	return s.started.Load() && !s.stopped.Load()
}

// Attempts returns the number of connection attempts made so far.
func (s *Subscription) Attempts() uint64 {
	return s.attempts.Load()
}

func (s *Subscription) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Subscription) setState(st State, err error) {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.mu.Unlock()

	ev := domain.FeedEvent{
		Type:  domain.FeedEventStatus,
		State: string(st),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.publish(ev)
}

func (s *Subscription) run(ctx context.Context) {
	defer s.finish()
	defer func() {
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
	}()

	for {
		if s.stopped.Load() || ctx.Err() != nil {
			return
		}
		s.setState(StateConnecting, nil)
		outcome, err := s.stream(ctx)
		if s.stopped.Load() || ctx.Err() != nil {
			return
		}

		delay := s.cfg.EndedBackoff
		if outcome == StateFailed {
			delay = s.cfg.FailedBackoff
			s.logger.Warn("update stream failed, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("backoff", delay),
			)
		} else {
			s.logger.Info("update stream ended, reconnecting", slog.Duration("backoff", delay))
		}
		s.setState(outcome, err)
		s.setState(StateBackoff, nil)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if s.stopped.Load() {
			return
		}
	}
}

// stream runs one connection and reports whether it ended or failed.
func (s *Subscription) stream(ctx context.Context) (State, error) {
	s.attempts.Add(1)
	since := s.store.Snapshot().Watermark()

	body, err := s.opener.OpenUpdates(ctx, s.cfg.Sport, since)
	if err != nil {
		return StateFailed, fmt.Errorf("feed: open updates: %w", err)
	}
	defer body.Close()
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	s.setState(StateStreaming, nil)
	s.logger.Info("update stream connected", slog.Int64("since", since))

	fr := newFrameReader(body, s.cfg.Framing)
	for fr.Scan() {
		f := fr.Frame()
		switch f.kind {
		case frameOversized:
			s.logger.Debug("update frame skipped", slog.String("error", "frame exceeds max_frame_bytes"))
		case frameSentinel:
			s.store.Apply(livestate.Patch{Watermark: f.watermark})
		case framePayload:
			p, err := DecodePayload(f.payload)
			if err != nil {
				s.logger.Debug("update frame skipped", slog.String("error", err.Error()))
				continue
			}
			patch := livestate.Patch{Headers: p.Headers, Bets: p.Bets}
			if patch.Empty() {
				continue
			}
			s.store.Apply(patch)
			s.publish(domain.FeedEvent{
				Type:      domain.FeedEventPatch,
				Watermark: s.store.Snapshot().Watermark(),
				Headers:   p.Headers,
				Bets:      p.Bets,
			})
		}
	}
	if err := fr.Err(); err != nil {
		return StateFailed, fmt.Errorf("feed: read updates: %w: %w", domain.ErrTransport, err)
	}
	return StateEnded, nil
}

func (s *Subscription) publish(ev domain.FeedEvent) {
	if s.queue == nil {
		return
	}
	ev.SessionID = s.cfg.SessionID
	ev.Sport = s.cfg.Sport
	ev.Seq = s.seq.Add(1)
	ev.At = time.Now().UTC()
	if s.queue.Push(ev) {
		s.logger.Debug("feed queue full, oldest event dropped",
			slog.Uint64("dropped_total", s.queue.Dropped()),
		)
	}
}
