package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mineralcatalog/internal/adapters/minerals"
	"mineralcatalog/internal/blob"
	"mineralcatalog/internal/catalog"
	"mineralcatalog/internal/config"
	"mineralcatalog/internal/metrics"
	"mineralcatalog/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg.Log)
	app, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()
	return app.server.Run(cmd.Context())
}

// app is the wired service graph.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	catalog *catalog.Service
	handler *minerals.Handler
	worker  *minerals.Worker
	metrics *metrics.Metrics
	server  *server.Server
	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, err := catalog.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	svcOpts := []catalog.Option{catalog.WithLogger(logger.With("component", "catalog"))}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
		svcOpts = append(svcOpts, catalog.WithMetrics(a.metrics))
	}
	a.catalog = catalog.NewService(store, svcOpts...)
	if err := a.catalog.Seed(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	a.handler = minerals.NewHandler(a.catalog)
	a.handler.Logger = logger.With("component", "http")

	if cfg.Exports.Enabled {
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			a.close()
			return nil, err
		}
		a.worker = minerals.NewWorker(a.catalog, blobs,
			minerals.WithQueueSize(cfg.Exports.QueueSize),
			minerals.WithWorkerLogger(logger.With("component", "exports")),
		)
		a.worker.Start()
		a.handler.Exports = a.worker
		a.closers = append(a.closers, a.stopWorker)
	}

	srvOpts := []server.Option{server.WithLogger(logger)}
	if a.metrics != nil {
		srvOpts = append(srvOpts, server.WithMetrics(a.metrics, cfg.Metrics.Path))
	}
	a.server = server.New(cfg.Server, a.handler, srvOpts...)

	logger.Info("mineral catalog ready",
		"storage", cfg.Storage.Driver,
		"blob", cfg.Blob.Driver,
		"exports", cfg.Exports.Enabled,
		"metrics", cfg.Metrics.Enabled,
	)
	return a, nil
}

func (a *app) stopWorker() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.worker.Stop(ctx)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}
