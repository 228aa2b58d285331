package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ODDSTREAM_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ODDSTREAM_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Provider ──
	setStr(&cfg.Provider.BaseURL, "ODDSTREAM_PROVIDER_BASE_URL")
	setStr(&cfg.Provider.APIKey, "ODDSTREAM_PROVIDER_API_KEY")
	setStr(&cfg.Provider.APIKeyHeader, "ODDSTREAM_PROVIDER_API_KEY_HEADER")
	setDuration(&cfg.Provider.RequestTimeout, "ODDSTREAM_PROVIDER_REQUEST_TIMEOUT")
	setDuration(&cfg.Provider.BulkTimeout, "ODDSTREAM_PROVIDER_BULK_TIMEOUT")

	// ── Feed ──
	setInt(&cfg.Feed.MaxFrameBytes, "ODDSTREAM_FEED_MAX_FRAME_BYTES")
	setDuration(&cfg.Feed.EndedBackoff, "ODDSTREAM_FEED_ENDED_BACKOFF")
	setDuration(&cfg.Feed.FailedBackoff, "ODDSTREAM_FEED_FAILED_BACKOFF")
	setInt(&cfg.Feed.QueueSize, "ODDSTREAM_FEED_QUEUE_SIZE")

	// ── Session ──
	setBool(&cfg.Session.AutoStart, "ODDSTREAM_SESSION_AUTO_START")
	setStr(&cfg.Session.Mode, "ODDSTREAM_SESSION_MODE")
	setStr(&cfg.Session.Sport, "ODDSTREAM_SESSION_SPORT")
	setDuration(&cfg.Session.Interval, "ODDSTREAM_SESSION_INTERVAL")
	setStr(&cfg.Session.ScheduledRefresh, "ODDSTREAM_SESSION_SCHEDULED_REFRESH")

	// ── Catalog ──
	setDuration(&cfg.Catalog.CacheTTL, "ODDSTREAM_CATALOG_CACHE_TTL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ODDSTREAM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ODDSTREAM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ODDSTREAM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ODDSTREAM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ODDSTREAM_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ODDSTREAM_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ODDSTREAM_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ODDSTREAM_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ODDSTREAM_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ODDSTREAM_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ODDSTREAM_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ODDSTREAM_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ODDSTREAM_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ODDSTREAM_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ODDSTREAM_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ODDSTREAM_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ODDSTREAM_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ODDSTREAM_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ODDSTREAM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ODDSTREAM_S3_REGION")
	setStr(&cfg.S3.Bucket, "ODDSTREAM_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "ODDSTREAM_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "ODDSTREAM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ODDSTREAM_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ODDSTREAM_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ODDSTREAM_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ODDSTREAM_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ODDSTREAM_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ODDSTREAM_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ODDSTREAM_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ODDSTREAM_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ODDSTREAM_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ODDSTREAM_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ODDSTREAM_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
