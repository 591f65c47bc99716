// Package bootstrap builds the stores, translator and dispatcher named by the
// configuration. The server, the worker and the CLI share it.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/dharsanguruparan/doctranslate/internal/artifact"
	"github.com/dharsanguruparan/doctranslate/internal/config"
	"github.com/dharsanguruparan/doctranslate/internal/database"
	"github.com/dharsanguruparan/doctranslate/internal/logging"
	"github.com/dharsanguruparan/doctranslate/internal/processing"
	"github.com/dharsanguruparan/doctranslate/internal/queue"
	"github.com/dharsanguruparan/doctranslate/internal/status"
	"github.com/dharsanguruparan/doctranslate/internal/translator"
	"github.com/dharsanguruparan/doctranslate/internal/worker"
)

// App holds the dependencies built from one Config.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Statuses   status.Store
	Inputs     artifact.Store
	Outputs    artifact.Store
	Translator translator.Translator
	Single     *processing.SingleFile
	Archive    *processing.Archive
	Dispatcher *worker.Dispatcher

	closers []func()
}

// New connects every backend named by cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	var err error
	if app.Statuses, err = app.statusStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if app.Inputs, app.Outputs, err = app.artifactStores(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if app.Translator, err = NewTranslator(cfg.Translator); err != nil {
		app.Close()
		return nil, err
	}
	app.Single = processing.NewSingleFile(app.Translator, app.Outputs, logger)
	app.Archive = processing.NewArchive(app.Translator, app.Outputs, logger).SetMaxEntryBytes(cfg.MaxEntryBytes)
	app.Dispatcher = worker.NewDispatcher(app.Statuses, app.Inputs, app.Single, app.Archive, logger)
	return app, nil
}

// Close releases backend connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// RedisOpt returns the asynq connection settings.
func (a *App) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	}
}

// Queue returns the enqueuer for the configured backend. For the memory
// backend the returned Local pool must be started by the caller; it is nil
// otherwise.
func (a *App) Queue() (queue.Enqueuer, *queue.Local) {
	if a.Config.QueueBackend == config.BackendRedis {
		client := queue.NewClient(asynq.NewClient(a.RedisOpt()), a.Config.QueueName, a.Config.TaskTimeout)
		a.closers = append(a.closers, func() { _ = client.Close() })
		return client, nil
	}
	local := queue.NewLocal(a.Config.Workers, a.Dispatcher.Dispatch, a.Logger).OnShutdown(a.Dispatcher.Abandon)
	return local, local
}

// NewWorkerServer builds the asynq server that drains the Redis queue.
func (a *App) NewWorkerServer() *asynq.Server {
	name := a.Config.QueueName
	if name == "" {
		name = queue.DefaultQueue
	}
	return asynq.NewServer(a.RedisOpt(), asynq.Config{
		Concurrency: a.Config.Workers,
		Queues:      map[string]int{name: 1},
		Logger:      logging.AsynqLogger{Logger: a.Logger},
	})
}

func (a *App) statusStore(ctx context.Context) (status.Store, error) {
	switch a.Config.StatusBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
		a.closers = append(a.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return status.NewRedisStore(client, a.Config.StatusTTL), nil
	case config.BackendPostgres:
		pool, err := database.Connect(ctx, a.Config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		return status.NewPostgresStore(pool), nil
	default:
		return status.NewMemoryStore(), nil
	}
}

func (a *App) artifactStores(ctx context.Context) (artifact.Store, artifact.Store, error) {
	cfg := a.Config
	if cfg.ArtifactBackend == config.BackendS3 {
		client, err := artifact.NewMinioClient(artifact.S3Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Region:    cfg.S3Region,
		})
		if err != nil {
			return nil, nil, err
		}
		inputs := artifact.NewBucket(client, cfg.UploadBucket, cfg.S3Region, "uploads")
		outputs := artifact.NewBucket(client, cfg.OutputBucket, cfg.S3Region, "translated")
		for _, b := range []*artifact.Bucket{inputs, outputs} {
			if err := b.EnsureBucket(ctx); err != nil {
				return nil, nil, err
			}
		}
		return inputs, outputs, nil
	}
	inputs, err := artifact.NewDir(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}
	outputs, err := artifact.NewDir(cfg.TranslatedDir)
	if err != nil {
		return nil, nil, err
	}
	return inputs, outputs, nil
}

// NewTranslator builds the translation adapter for cfg.Provider.
func NewTranslator(cfg config.TranslatorConfig) (translator.Translator, error) {
	opts := translator.Options{
		Provider:          cfg.Provider,
		Proxy:             cfg.Proxy,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
	switch cfg.Provider {
	case translator.ProviderOpenAI:
		opts.BaseURL = cfg.OpenAIBaseURL
		opts.APIKey = cfg.OpenAIKey
		opts.Model = cfg.OpenAIModel
	default:
		opts.BaseURL = cfg.LibreTranslateURL
		opts.APIKey = cfg.LibreTranslateKey
	}
	return translator.New(opts)
}
