// Package config defines the top-level configuration for the odds stream
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ODDSTREAM_* environment variables.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Feed     FeedConfig     `toml:"feed"`
	Session  SessionConfig  `toml:"session"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// ProviderConfig holds the odds provider endpoints and credentials.
type ProviderConfig struct {
	BaseURL           string   `toml:"base_url"`
	SportsPath        string   `toml:"sports_path"`
	DictionaryPath    string   `toml:"dictionary_path"`
	ScheduledPath     string   `toml:"scheduled_path"`
	InitialStreamPath string   `toml:"initial_stream_path"`
	UpdateStreamPath  string   `toml:"update_stream_path"`
	APIKey            string   `toml:"api_key"`
	APIKeyHeader      string   `toml:"api_key_header"`
	RequestTimeout    duration `toml:"request_timeout"`
	BulkTimeout       duration `toml:"bulk_timeout"`
}

// FeedConfig holds streaming feed parameters.
type FeedConfig struct {
	InitialDelimiter string   `toml:"initial_delimiter"`
	UpdateDelimiter  string   `toml:"update_delimiter"`
	MaxFrameBytes    int      `toml:"max_frame_bytes"`
	EndedBackoff     duration `toml:"ended_backoff"`
	FailedBackoff    duration `toml:"failed_backoff"`
	QueueSize        int      `toml:"queue_size"`
}

// SessionConfig controls the session started at boot.
type SessionConfig struct {
	AutoStart        bool     `toml:"auto_start"`
	Mode             string   `toml:"mode"`
	Sport            string   `toml:"sport"`
	Interval         duration `toml:"interval"`
	ScheduledRefresh string   `toml:"scheduled_refresh"`
}

// CatalogConfig holds reference catalog caching parameters.
type CatalogConfig struct {
	CacheTTL duration `toml:"cache_ttl"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the audit log.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for the snapshot
// archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{
			BaseURL:           "http://localhost:8080/api",
			SportsPath:        "/sports",
			DictionaryPath:    "/dictionary",
			ScheduledPath:     "/scheduled",
			InitialStreamPath: "/stream/initial",
			UpdateStreamPath:  "/stream/updates",
			APIKeyHeader:      "X-API-Key",
			RequestTimeout:    duration{30 * time.Second},
			BulkTimeout:       duration{2 * time.Minute},
		},
		Feed: FeedConfig{
			InitialDelimiter: "\n\n",
			UpdateDelimiter:  "\n",
			MaxFrameBytes:    16 << 20,
			EndedBackoff:     duration{time.Second},
			FailedBackoff:    duration{5 * time.Second},
			QueueSize:        1024,
		},
		Session: SessionConfig{
			AutoStart:        false,
			Mode:             "live",
			Interval:         duration{24 * time.Hour},
			ScheduledRefresh: "@every 5m",
		},
		Catalog: CatalogConfig{
			CacheTTL: duration{10 * time.Minute},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "oddstream-archive",
			Prefix:         "snapshots",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"init_failed", "stream_failed", "reset"},
		},
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Session.Mode.
var validModes = map[string]bool{
	"live":      true,
	"scheduled": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Provider
	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		errs = append(errs, "provider: base_url must not be empty")
	}
	if c.Provider.RequestTimeout.Duration <= 0 {
		errs = append(errs, "provider: request_timeout must be > 0")
	}
	if c.Provider.BulkTimeout.Duration <= 0 {
		errs = append(errs, "provider: bulk_timeout must be > 0")
	}

	// Feed
	if c.Feed.InitialDelimiter == "" {
		errs = append(errs, "feed: initial_delimiter must not be empty")
	}
	if c.Feed.UpdateDelimiter == "" {
		errs = append(errs, "feed: update_delimiter must not be empty")
	}
	if c.Feed.MaxFrameBytes < 1024 {
		errs = append(errs, "feed: max_frame_bytes must be >= 1024")
	}
	if c.Feed.EndedBackoff.Duration <= 0 || c.Feed.FailedBackoff.Duration <= 0 {
		errs = append(errs, "feed: ended_backoff and failed_backoff must be > 0")
	}
	if c.Feed.QueueSize < 1 {
		errs = append(errs, "feed: queue_size must be >= 1")
	}

	// Session
	if !validModes[strings.ToLower(c.Session.Mode)] {
		errs = append(errs, fmt.Sprintf("session: unknown mode %q (valid: live, scheduled)", c.Session.Mode))
	}
	if c.Session.AutoStart && strings.TrimSpace(c.Session.Sport) == "" {
		errs = append(errs, "session: sport is required when auto_start is set")
	}
	if c.Session.Interval.Duration < 0 {
		errs = append(errs, "session: interval must not be negative")
	}
	if spec := strings.TrimSpace(c.Session.ScheduledRefresh); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Sprintf("session: scheduled_refresh %q: %v", spec, err))
		}
	}

	// Catalog
	if c.Catalog.CacheTTL.Duration < 0 {
		errs = append(errs, "catalog: cache_ttl must not be negative")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
