package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/oddstream/internal/domain"
	"github.com/redis/go-redis/v9"
)

const subscriberBuffer = 256

// SignalBus implements domain.SignalBus over Redis Pub/Sub. Channel names
// are namespaced with the client's key prefix on the wire and handed back to
// subscribers unprefixed.
type SignalBus struct {
	rdb    *redis.Client
	prefix string
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.rdb, prefix: c.prefix}
}

// Publish sends payload to channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, sb.prefix+channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe listens on channel, which may be a glob pattern such as
// "ch:patch:*". The returned channel is closed when ctx is cancelled or the
// subscription drops. Slow readers lose messages rather than stall the
// underlying connection.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	full := sb.prefix + channel
	var pubsub *redis.PubSub
	if hasPattern(channel) {
		pubsub = sb.rdb.PSubscribe(ctx, full)
	} else {
		pubsub = sb.rdb.Subscribe(ctx, full)
	}

	// Wait for the subscribe confirmation so callers know the channel is live.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
				}
			}
		}
	}()
	return out, nil
}

// hasPattern reports whether channel needs PSUBSCRIBE.
func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

var _ domain.SignalBus = (*SignalBus)(nil)
