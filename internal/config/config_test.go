package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "\n\n", cfg.Feed.InitialDelimiter)
	assert.Equal(t, "\n", cfg.Feed.UpdateDelimiter)
	assert.Equal(t, time.Second, cfg.Feed.EndedBackoff.Duration)
	assert.Equal(t, 5*time.Second, cfg.Feed.FailedBackoff.Duration)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
log_level = "debug"

[provider]
base_url = "https://odds.example.com/api"
bulk_timeout = "45s"

[feed]
update_delimiter = "\r\n"
queue_size = 64

[session]
auto_start = true
mode = "scheduled"
sport = "S"
interval = "6h"
scheduled_refresh = "*/10 * * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("ODDSTREAM_PROVIDER_API_KEY", "secret-key")
	t.Setenv("ODDSTREAM_REDIS_ADDR", "redis:6379")
	t.Setenv("ODDSTREAM_SERVER_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("ODDSTREAM_FEED_FAILED_BACKOFF", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://odds.example.com/api", cfg.Provider.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Provider.BulkTimeout.Duration)
	assert.Equal(t, 30*time.Second, cfg.Provider.RequestTimeout.Duration, "untouched fields keep defaults")
	assert.Equal(t, "\r\n", cfg.Feed.UpdateDelimiter)
	assert.Equal(t, 64, cfg.Feed.QueueSize)
	assert.Equal(t, 2*time.Second, cfg.Feed.FailedBackoff.Duration)
	assert.True(t, cfg.Session.AutoStart)
	assert.Equal(t, "scheduled", cfg.Session.Mode)
	assert.Equal(t, 6*time.Hour, cfg.Session.Interval.Duration)
	assert.Equal(t, "secret-key", cfg.Provider.APIKey)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Session.Mode = "replay"
	cfg.Session.AutoStart = true
	cfg.Session.ScheduledRefresh = "every tuesday"
	cfg.Feed.QueueSize = 0
	cfg.Postgres.Enabled = true
	cfg.Postgres.Host = ""
	cfg.S3.Enabled = true
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"log_level",
		"unknown mode",
		"sport is required",
		"scheduled_refresh",
		"queue_size",
		"postgres: host",
		"s3: bucket",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateAcceptsCronDescriptors(t *testing.T) {
	cfg := Defaults()
	cfg.Session.ScheduledRefresh = "@hourly"
	assert.NoError(t, cfg.Validate())

	cfg.Session.ScheduledRefresh = ""
	assert.NoError(t, cfg.Validate(), "empty refresh disables the job")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Provider.APIKey = "k"
	cfg.Redis.Password = "p"
	cfg.S3.SecretKey = "s"
	cfg.Notify.TelegramToken = "t"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Provider.APIKey)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Empty(t, out.S3.AccessKey, "empty secrets stay empty")
	assert.Equal(t, "k", cfg.Provider.APIKey, "original untouched")

	out.Server.CORSOrigins[0] = "changed"
	assert.NotEqual(t, "changed", cfg.Server.CORSOrigins[0])
}
