// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/sdskit/internal/dataset"
	"github.com/starford/sdskit/internal/watch"
)

// EventCallback reports watcher-driven manifest changes.
type EventCallback = watch.EventCallback

// Run loads the configured dataset and keeps its manifest in step with
// the data trees until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}

	logger.Info("Configuration loaded",
		slog.String("dataset_path", cfg.Dataset.Path),
		slog.String("resources_dir", cfg.Templates.ResourcesDir),
		slog.String("version", cfg.Version()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ds := dataset.New(
		dataset.WithResourcesDir(cfg.Templates.ResourcesDir),
		dataset.WithVersion(cfg.Version()),
		dataset.WithLogger(logger),
	)
	if err := ds.LoadDataset(cfg.Dataset.Path); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	// Run initial reconciliation.
	if err := watch.Sync(ds, logger); err != nil {
		logger.Warn("initial manifest sync failed", slog.String("error", err.Error()))
	}

	logger.Info("Watch service starting...", slog.String("dataset_path", cfg.Dataset.Path))

	g, gCtx := errgroup.WithContext(ctx)

	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	// Start the manifest watcher.
	g.Go(func() error {
		if err := watch.Watch(watchCtx, ds, logger, app.events); err != nil {
			return fmt.Errorf("watch service error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		stopWatch()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watch service stopped successfully")
	return nil
}
