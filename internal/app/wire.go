package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/oddstream/internal/blob/s3"
	"github.com/alanyoungcy/oddstream/internal/cache/redis"
	"github.com/alanyoungcy/oddstream/internal/catalog"
	"github.com/alanyoungcy/oddstream/internal/config"
	"github.com/alanyoungcy/oddstream/internal/domain"
	"github.com/alanyoungcy/oddstream/internal/feed"
	"github.com/alanyoungcy/oddstream/internal/notify"
	"github.com/alanyoungcy/oddstream/internal/orchestrator"
	"github.com/alanyoungcy/oddstream/internal/platform/provider"
	"github.com/alanyoungcy/oddstream/internal/server/handler"
	"github.com/alanyoungcy/oddstream/internal/store/postgres"
)

// Dependencies bundles everything the run loop needs. Optional members
// (AuditStore, Archiver) are nil when their backend is disabled.
type Dependencies struct {
	Provider     *provider.Client
	CatalogCache domain.CatalogCache
	SignalBus    domain.SignalBus
	AuditStore   domain.AuditStore
	Archiver     domain.SnapshotArchiver
	Notifier     *notify.Notifier
	Queue        *feed.Queue
	Orchestrator *orchestrator.Orchestrator

	// Health lists the reachability checks reported by GET /api/health.
	Health map[string]handler.Pinger
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Health: make(map[string]handler.Pinger)}

	// --- Redis (required: catalog cache + signal bus) ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	deps.CatalogCache = redis.NewCatalogCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.Health["redis"] = redisClient

	// --- PostgreSQL (optional audit log) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.AuditStore = postgres.NewAuditStore(pgClient.Pool())
		deps.Health["postgres"] = pgClient.Pool()
	}

	// --- S3 (optional snapshot archive) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		var audit domain.AuditLogger
		if deps.AuditStore != nil {
			audit = deps.AuditStore
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), cfg.S3.Prefix, audit)
		deps.Health["s3"] = handler.PingFunc(s3Client.Health)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Provider, catalog and orchestrator ---
	deps.Provider = provider.NewClient(provider.Options{
		BaseURL:      cfg.Provider.BaseURL,
		APIKey:       cfg.Provider.APIKey,
		APIKeyHeader: cfg.Provider.APIKeyHeader,
		Timeout:      cfg.Provider.RequestTimeout.Duration,
		Paths: provider.Paths{
			Sports:        cfg.Provider.SportsPath,
			Dictionary:    cfg.Provider.DictionaryPath,
			Scheduled:     cfg.Provider.ScheduledPath,
			InitialStream: cfg.Provider.InitialStreamPath,
			UpdateStream:  cfg.Provider.UpdateStreamPath,
		},
	})
	deps.Queue = feed.NewQueue(cfg.Feed.QueueSize)

	loader := catalog.NewLoader(deps.Provider, deps.CatalogCache, cfg.Catalog.CacheTTL.Duration, logger)
	deps.Orchestrator = orchestrator.New(deps.Provider, loader, orchestratorConfig(cfg), orchestratorDeps(deps), logger)

	return deps, cleanup, nil
}

func orchestratorConfig(cfg *config.Config) orchestrator.Config {
	return orchestrator.Config{
		InitialFraming: feed.Framing{
			Delimiter:     cfg.Feed.InitialDelimiter,
			MaxFrameBytes: cfg.Feed.MaxFrameBytes,
		},
		UpdateFraming: feed.Framing{
			Delimiter:     cfg.Feed.UpdateDelimiter,
			MaxFrameBytes: cfg.Feed.MaxFrameBytes,
		},
		BulkTimeout:      cfg.Provider.BulkTimeout.Duration,
		EndedBackoff:     cfg.Feed.EndedBackoff.Duration,
		FailedBackoff:    cfg.Feed.FailedBackoff.Duration,
		ScheduledRefresh: cfg.Session.ScheduledRefresh,
	}
}

// orchestratorDeps converts the optional members to interface values,
// leaving them nil rather than typed-nil when their backend is off.
func orchestratorDeps(deps *Dependencies) orchestrator.Deps {
	od := orchestrator.Deps{Queue: deps.Queue}
	if deps.AuditStore != nil {
		od.Audit = deps.AuditStore
	}
	if deps.Archiver != nil {
		od.Archiver = deps.Archiver
	}
	if deps.Notifier != nil && deps.Notifier.Enabled() {
		od.Alerter = deps.Notifier
	}
	return od
}
