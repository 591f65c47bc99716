package bootstrap

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/doctranslate/internal/api"
)

// Serve runs the HTTP front end until ctx is cancelled. With the memory queue
// the workers run in the same process and are drained before Serve returns.
func Serve(ctx context.Context, app *App) error {
	enqueuer, local := app.Queue()
	srv := api.New(app.Config, app.Statuses, app.Inputs, app.Outputs, enqueuer, app.Logger)

	g, ctx := errgroup.WithContext(ctx)
	if local != nil {
		local.Start(ctx)
		g.Go(func() error {
			local.Wait()
			return nil
		})
		app.Logger.Info("embedded workers started", "workers", app.Config.Workers)
	}
	g.Go(func() error {
		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// RunWorker drains the Redis queue until ctx is cancelled.
func RunWorker(ctx context.Context, app *App) error {
	server := app.NewWorkerServer()
	if err := server.Start(app.Dispatcher.Handler()); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	app.Logger.Info("worker started", "concurrency", app.Config.Workers, "redis", app.Config.RedisAddr)
	<-ctx.Done()
	server.Shutdown()
	app.Logger.Info("worker stopped")
	return nil
}
