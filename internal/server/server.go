// Package server exposes the bot's HTTP status API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/mirrorbot/internal/config"
	"github.com/alanyoungcy/mirrorbot/internal/server/handler"
	"github.com/alanyoungcy/mirrorbot/internal/server/middleware"
)

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Status    *handler.StatusHandler
	Positions *handler.PositionHandler
	Trades    *handler.TradesHandler
	Snapshots *handler.SnapshotsHandler
	Reports   *handler.ReportsHandler
}

// Server is the read-only HTTP API for operators and dashboards.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain (auth, logging, CORS) applied. The health endpoint bypasses auth.
func NewServer(cfg config.ServerConfig, handlers Handlers, logger *slog.Logger) *Server {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/status", handlers.Status.GetStatus)
	api.HandleFunc("GET /api/v1/stats", handlers.Status.GetStats)
	api.HandleFunc("GET /api/v1/positions", handlers.Positions.ListPositions)
	api.HandleFunc("GET /api/v1/trades", handlers.Trades.ListTrades)
	api.HandleFunc("GET /api/v1/trades/{id}", handlers.Trades.GetTrade)
	api.HandleFunc("GET /api/v1/snapshots", handlers.Snapshots.ListSnapshots)
	api.HandleFunc("GET /api/v1/reports", handlers.Reports.ListReports)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", handlers.Health.HealthCheck)
	root.Handle("/api/v1/", middleware.Auth(cfg.APIKey)(api))

	var h http.Handler = root
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
