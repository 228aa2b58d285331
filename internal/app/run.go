package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/oddstream/internal/feed"
	"github.com/alanyoungcy/oddstream/internal/orchestrator"
	"github.com/alanyoungcy/oddstream/internal/server"
	"github.com/alanyoungcy/oddstream/internal/server/handler"
	"github.com/alanyoungcy/oddstream/internal/server/ws"
)

const shutdownTimeout = 5 * time.Second

// serve runs the patch relay, the optional API server and the boot session
// until ctx is cancelled, then resets the session.
func (a *App) serve(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	var alerter feed.Alerter
	if deps.Notifier.Enabled() {
		alerter = deps.Notifier
	}
	relay := feed.NewRelay(deps.Queue, deps.SignalBus, alerter, a.logger)
	g.Go(func() error {
		return relay.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	if a.cfg.Session.AutoStart {
		g.Go(func() error {
			a.autoStart(ctx, deps.Orchestrator)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		resetCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		deps.Orchestrator.Reset(resetCtx)
		return nil
	})

	err := g.Wait()
	a.logger.Info("application stopped")
	return err
}

// autoStart initializes the configured session. A failure is logged and the
// service keeps running so the session can be started over the API.
func (a *App) autoStart(ctx context.Context, orch *orchestrator.Orchestrator) {
	mode, err := orchestrator.ParseMode(a.cfg.Session.Mode)
	if err != nil {
		a.logger.ErrorContext(ctx, "auto start skipped", slog.String("error", err.Error()))
		return
	}
	res, err := orch.Initialize(ctx, orchestrator.InitRequest{
		Mode:     mode,
		Sport:    a.cfg.Session.Sport,
		Interval: a.cfg.Session.Interval.Duration,
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "auto start failed",
			slog.String("mode", string(mode)),
			slog.String("sport", a.cfg.Session.Sport),
			slog.String("error", err.Error()),
		)
		return
	}
	a.logger.InfoContext(ctx, "auto start complete",
		slog.String("session_id", res.SessionID),
		slog.String("sport", res.SportCode),
	)
}

// startHTTPServer registers the API routes and the WebSocket hub and runs
// them on g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	orch := deps.Orchestrator
	hub := ws.NewHub(deps.SignalBus, func() any { return orch.Status() }, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(deps.Health, a.logger),
		Session: handler.NewSessionHandler(orch, a.logger),
		Live:    handler.NewLiveHandler(orch, a.logger),
		Catalog: handler.NewCatalogHandler(orch, a.logger),
	}
	if deps.AuditStore != nil {
		handlers.Audit = handler.NewAuditHandler(deps.AuditStore, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
