package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"DayScreener/internal/metrics"
	"DayScreener/internal/pipeline"
)

// Server manages the HTTP server, routes and the live view hub.
type Server struct {
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	hub      *Hub
	router   *http.ServeMux
	server   *http.Server
	log      *zap.Logger
}

// New creates the HTTP server and subscribes the hub to new views.
func New(addr string, p *pipeline.Pipeline, m *metrics.Metrics, log *zap.Logger) *Server {
	s := &Server{
		pipeline: p,
		metrics:  m,
		hub:      NewHub(m, log),
		log:      log,
	}
	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute, // refresh and detail calls wait on upstream fetches
		IdleTimeout:  120 * time.Second,
	}
	p.Subscribe(s.hub.Broadcast)
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server starting", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown closes websocket clients and gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	s.hub.Close()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
