// Package main runs the doctranslate HTTP front end. With the memory queue it
// also runs the translation workers in-process.
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

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("init", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := bootstrap.Serve(ctx, app); err != nil {
		logger.Error("server stopped", "error", err)
		app.Close()
		os.Exit(1)
	}
}
