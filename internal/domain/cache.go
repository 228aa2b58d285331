package domain

import (
	"context"
	"time"
)

// CatalogCache keeps the last successfully fetched reference catalog.
type CatalogCache interface {
	Set(ctx context.Context, cat Catalog, ttl time.Duration) error
	// Get returns ErrNotFound when nothing is cached.
	Get(ctx context.Context) (Catalog, error)
	Invalidate(ctx context.Context) error
}

// SignalBus provides pub/sub fan-out to observers outside the process.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
