package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/oddstream/internal/domain"
	"github.com/redis/go-redis/v9"
)

// CatalogCache implements domain.CatalogCache as a single JSON string key.
//
// Key schema:
//
//	{prefix}catalog - JSON-encoded domain.Catalog, expires after the TTL
type CatalogCache struct {
	rdb *redis.Client
	key string
}

// NewCatalogCache creates a CatalogCache backed by the given Client.
func NewCatalogCache(c *Client) *CatalogCache {
	return &CatalogCache{rdb: c.rdb, key: c.key("catalog")}
}

// Set stores cat. A ttl of zero keeps the entry until it is overwritten.
func (cc *CatalogCache) Set(ctx context.Context, cat domain.Catalog, ttl time.Duration) error {
	data, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("redis: marshal catalog: %w", err)
	}
	if err := cc.rdb.Set(ctx, cc.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set catalog: %w", err)
	}
	return nil
}

// Get returns the cached catalog or domain.ErrNotFound when the key is
// missing or expired.
func (cc *CatalogCache) Get(ctx context.Context) (domain.Catalog, error) {
	data, err := cc.rdb.Get(ctx, cc.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Catalog{}, domain.ErrNotFound
		}
		return domain.Catalog{}, fmt.Errorf("redis: get catalog: %w", err)
	}

	var cat domain.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return domain.Catalog{}, fmt.Errorf("redis: unmarshal catalog: %w", err)
	}
	return cat, nil
}

// Invalidate drops the cached catalog.
func (cc *CatalogCache) Invalidate(ctx context.Context) error {
	if err := cc.rdb.Del(ctx, cc.key).Err(); err != nil {
		return fmt.Errorf("redis: invalidate catalog: %w", err)
	}
	return nil
}

var _ domain.CatalogCache = (*CatalogCache)(nil)
