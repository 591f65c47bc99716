package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/doctranslate/internal/bootstrap"
	"github.com/dharsanguruparan/doctranslate/internal/config"
	"github.com/dharsanguruparan/doctranslate/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, os.Stdout)
	if cfg.QueueBackend != config.BackendRedis {
		logger.Error("worker requires the redis queue backend", "queue", cfg.QueueBackend)
		os.Exit(1)
	}

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("init", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := bootstrap.RunWorker(ctx, app); err != nil {
		logger.Error("worker stopped", "error", err)
		app.Close()
		os.Exit(1)
	}
}
