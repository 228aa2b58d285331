// Package server exposes the odds session over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/oddstream/internal/server/handler"
	"github.com/alanyoungcy/oddstream/internal/server/middleware"
	"github.com/alanyoungcy/oddstream/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates the handlers the server registers. Audit and the hub
// are optional.
type Handlers struct {
	Health  *handler.HealthHandler
	Session *handler.SessionHandler
	Live    *handler.LiveHandler
	Catalog *handler.CatalogHandler
	Audit   *handler.AuditHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route and wraps the mux in the logging and CORS
// middleware.
func NewServer(cfg Config, handlers Handlers, hub *ws.Hub, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           Routes(cfg, handlers, hub, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Full snapshots can be large.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger.With(slog.String("component", "server"))}
}

// Routes builds the routed, middleware-wrapped handler.
func Routes(cfg Config, handlers Handlers, hub *ws.Hub, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Session.Status)

	mux.HandleFunc("POST /api/session", handlers.Session.Initialize)
	mux.HandleFunc("DELETE /api/session", handlers.Session.Reset)

	mux.HandleFunc("GET /api/live", handlers.Live.GetLive)
	mux.HandleFunc("GET /api/live/headers", handlers.Live.GetHeaders)
	mux.HandleFunc("GET /api/live/matches/{id}/odds", handlers.Live.GetMatchOdds)

	mux.HandleFunc("GET /api/scheduled", handlers.Catalog.GetScheduled)
	mux.HandleFunc("GET /api/catalog", handlers.Catalog.GetCatalog)

	if handlers.Audit != nil {
		mux.HandleFunc("GET /api/audit", handlers.Audit.ListAudit)
	}
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
