package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// Alerter raises operator notifications.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Relay drains the feed queue and publishes each event on the signal bus:
// patches on "ch:patch:<sport>", status transitions on "ch:status". A
// stream failure raises a single alert until the stream recovers.
type Relay struct {
	queue   *Queue
	bus     domain.SignalBus
	alerter Alerter
	logger  *slog.Logger

	failing bool
}

// NewRelay creates a Relay. bus and alerter may be nil.
func NewRelay(queue *Queue, bus domain.SignalBus, alerter Alerter, logger *slog.Logger) *Relay {
	return &Relay{
		queue:   queue,
		bus:     bus,
		alerter: alerter,
		logger:  logger.With(slog.String("component", "feed_relay")),
	}
}

// Run relays events until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("feed relay started")
	defer r.logger.Info("feed relay stopped")

	for {
		ev, err := r.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if err := r.handle(ctx, ev); err != nil {
			r.logger.Debug("feed relay publish failed",
				slog.String("type", string(ev.Type)),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (r *Relay) handle(ctx context.Context, ev domain.FeedEvent) error {
	channel := domain.PatchChannel(ev.Sport)
	if ev.Type == domain.FeedEventStatus {
		channel = domain.ChannelStatus
		r.alert(ctx, ev)
	}
	if r.bus == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("feed: marshal event: %w", err)
	}
	return r.bus.Publish(ctx, channel, payload)
}

func (r *Relay) alert(ctx context.Context, ev domain.FeedEvent) {
	switch State(ev.State) {
	case StateStreaming:
		r.failing = false
	case StateFailed:
		if r.failing || r.alerter == nil {
			return
		}
		r.failing = true
		msg := fmt.Sprintf("sport %s session %s: %s", ev.Sport, ev.SessionID, ev.Error)
		if err := r.alerter.Notify(ctx, "stream_failed", "Update stream failed", msg); err != nil {
			r.logger.Warn("stream failure alert not delivered", slog.String("error", err.Error()))
		}
	}
}
