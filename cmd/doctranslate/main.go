package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/doctranslate/internal/bootstrap"
	"github.com/dharsanguruparan/doctranslate/internal/config"
	"github.com/dharsanguruparan/doctranslate/internal/logging"
)

var logLevel string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "doctranslate: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctranslate",
		Short: "Translate txt, docx, pdf and zip documents",
		Long: `doctranslate accepts documents over HTTP, queues them and translates them in the
background. The same pipeline can be run once from the command line.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
	cmd.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newTranslateCmd(),
		newEnqueueCmd(),
		newStatusCmd(),
	)
	return cmd
}

// loadConfig reads configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// withApp builds the application for the duration of fn.
func withApp(ctx context.Context, cfg *config.Config, fn func(*bootstrap.App) error) error {
	logger := logging.New(cfg.LogLevel, os.Stderr)
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func newServeCmd() *cobra.Command {
	var addr string
	var workers int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and in-process workers with the memory queue)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Address = addr
			}
			if workers > 0 {
				cfg.Workers = workers
			}
			return withApp(cmd.Context(), cfg, func(app *bootstrap.App) error {
				return bootstrap.Serve(cmd.Context(), app)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from DOCTRANSLATE_ADDRESS)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of translation workers")
	return cmd
}

func newWorkerCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process jobs from the Redis queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.QueueBackend != config.BackendRedis {
				return fmt.Errorf("worker requires DOCTRANSLATE_QUEUE=redis (got %q)", cfg.QueueBackend)
			}
			if workers > 0 {
				cfg.Workers = workers
			}
			return withApp(cmd.Context(), cfg, func(app *bootstrap.App) error {
				return bootstrap.RunWorker(cmd.Context(), app)
			})
		},
	}
	cmd.Flags().IntVar(&workers, "concurrency", 0, "Number of concurrent jobs")
	return cmd
}
