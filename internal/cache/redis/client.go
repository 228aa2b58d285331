// Package redis backs the catalog cache and the feed signal bus with
// go-redis/v9.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
	// KeyPrefix namespaces every key this package writes. Defaults to
	// "oddstream:".
	KeyPrefix string
}

// Client wraps a go-redis Client together with the key namespace shared by
// the cache and bus built on top of it.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// New dials Redis, pings it and returns the wrapper. Redis is required for
// the service to run, so a failed ping is returned to the caller.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return Wrap(rdb, cfg.KeyPrefix), nil
}

// Wrap adopts an existing go-redis client without pinging it.
func Wrap(rdb *redis.Client, prefix string) *Client {
	if prefix == "" {
		prefix = "oddstream:"
	}
	return &Client{rdb: rdb, prefix: prefix}
}

// Ping checks the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// key returns name inside the client's namespace.
func (c *Client) key(name string) string {
	return c.prefix + name
}
