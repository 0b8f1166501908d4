// Package app orchestrates the main components of the eris bridge: the
// webhook server and the action pipeline behind it.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/eris/internal/config"
	"github.com/sevigo/eris/internal/jobs"
	"github.com/sevigo/eris/internal/observability"
)

// HTTPServer is the part of the server the app drives.
type HTTPServer interface {
	Start() error
	Stop() error
}

// App holds the main application components.
type App struct {
	cfg      *config.Config
	server   HTTPServer
	pipeline *jobs.Pipeline
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewApp assembles an App from already wired parts.
func NewApp(cfg *config.Config, server HTTPServer, pipeline *jobs.Pipeline, metrics *observability.Metrics, logger *slog.Logger) *App {
	return &App{
		cfg:      cfg,
		server:   server,
		pipeline: pipeline,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run serves webhooks and drives the outbox until Stop is called or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting eris",
		"server_port", a.cfg.Server.Port,
		"metrics", a.cfg.Metrics.Enabled,
		"batch_max_size", a.cfg.Batch.MaxSize,
		"batch_max_wait", a.cfg.Batch.MaxWait)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			a.logger.Error("failed to start HTTP server", "error", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.pipeline.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down eris")

	// Stop the HTTP server first so no new interactions are accepted.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	// Let queued actions finish before the outbox is closed.
	a.pipeline.Stop()

	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Error("error shutting down metrics", "error", err)
		}
	}

	if serverErr != nil {
		a.logger.Error("eris stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("eris stopped successfully")
	return nil
}
