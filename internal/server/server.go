// Package server provides the HTTP API for Tally.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/tally/internal/artifact"
	"github.com/hyperjump/tally/internal/config"
	"github.com/hyperjump/tally/internal/exporter"
	"github.com/hyperjump/tally/internal/storage"
)

// Server is the HTTP server for the Tally API.
type Server struct {
	exports   *exporter.Service
	storage   storage.Storage
	artifacts *artifact.DiskStore
	config    *config.Config
	logger    *zap.Logger
	metrics   http.Handler
	pending   func() int
	server    *http.Server
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithPending reports queue depth on the status endpoint.
func WithPending(fn func() int) Option {
	return func(s *Server) { s.pending = fn }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	exports *exporter.Service,
	storage storage.Storage,
	artifacts *artifact.DiskStore,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		exports:   exports,
		storage:   storage,
		artifacts: artifacts,
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/exports", s.handleCreateExport)
		r.Get("/exports/{id}", s.handleGetExport)
		r.Get("/exports/{id}/download", s.handleDownloadExport)

		r.Post("/users", s.handleCreateUser)
		r.Get("/users", s.handleListUsers)
		r.Delete("/users/{id}", s.handleDeleteUser)

		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
