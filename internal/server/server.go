// Package server hosts the catalog HTTP handler with request logging,
// Prometheus instrumentation and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"mineralcatalog/internal/adapters/minerals"
	"mineralcatalog/internal/config"
	"mineralcatalog/internal/logging"
	"mineralcatalog/internal/metrics"
)

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request and lifecycle logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics instruments every request and mounts the scrape endpoint at path.
func WithMetrics(m *metrics.Metrics, path string) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsPath = path
	}
}

// Server wraps an http.Server.
type Server struct {
	cfg         config.ServerConfig
	api         http.Handler
	logger      *slog.Logger
	metrics     *metrics.Metrics
	metricsPath string
	http        *http.Server
}

// New builds a server for api. Nothing listens until Run or Serve.
func New(cfg config.ServerConfig, api http.Handler, opts ...Option) *Server {
	s := &Server{cfg: cfg, api: api, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the fully wrapped handler tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.metrics != nil && s.metricsPath != "" {
		mux.Handle(s.metricsPath, s.metrics.Handler())
	}
	mux.Handle("/", s.api)

	var h http.Handler = mux
	if s.metrics != nil {
		h = s.metrics.Middleware(s.route, h)
	}
	return s.logRequests(h)
}

func (s *Server) route(r *http.Request) string {
	if s.metricsPath != "" && r.URL.Path == s.metricsPath {
		return s.metricsPath
	}
	return minerals.RouteOf(r.URL.Path)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := metrics.NewStatusWriter(w)
		next.ServeHTTP(sw, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.Status(),
			"duration", time.Since(start),
		)
	})
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. In-flight requests
// get ShutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("http server shutting down", "timeout", timeout)
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	s.logger.Info("http server stopped")
	return nil
}
