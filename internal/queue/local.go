package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dharsanguruparan/doctranslate/internal/model"
)

// ErrQueueFull is returned when the Local buffer cannot take another job.
var ErrQueueFull = errors.New("queue full")

// Local is an in-process worker pool. Goroutines read jobs from a buffered
// channel so uploads return as soon as the job is queued.
type Local struct {
	jobs    chan model.Job
	workers int
	handle  Handler
	drop    Handler
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewLocal builds a pool whose queue capacity is tied to the worker count.
func NewLocal(workers int, handle Handler, logger *slog.Logger) *Local {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		jobs:    make(chan model.Job, workers*16),
		workers: workers,
		handle:  handle,
		logger:  logger,
	}
}

// OnShutdown sets the handler called for every job still buffered when the
// pool stops. Without one those jobs are only logged.
func (l *Local) OnShutdown(drop Handler) *Local {
	l.drop = drop
	return l
}

// Start launches the worker goroutines. They exit when ctx is cancelled.
func (l *Local) Start(ctx context.Context) {
	for i := 0; i < l.workers; i++ {
		l.wg.Add(1)
		go l.worker(ctx)
	}
}

// Wait blocks until every worker has returned.
func (l *Local) Wait() {
	l.wg.Wait()
}

// Enqueue queues job without blocking.
func (l *Local) Enqueue(ctx context.Context, job model.Job) error {
	select {
	case l.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (l *Local) worker(ctx context.Context) {
	defer l.wg.Done()
	for {
		// Cancellation wins over buffered work.
		if ctx.Err() != nil {
			l.drain(ctx)
			return
		}
		select {
		case <-ctx.Done():
			l.drain(ctx)
			return
		case job := <-l.jobs:
			if err := l.handle(ctx, job); err != nil {
				l.logger.Warn("job finished with error", "job_id", job.ID, "error", err)
			}
		}
	}
}

// drain empties the buffer after cancellation so no accepted job is left
// without a terminal status.
func (l *Local) drain(ctx context.Context) {
	for {
		select {
		case job := <-l.jobs:
			if l.drop == nil {
				l.logger.Warn("dropping queued job on shutdown", "job_id", job.ID)
				continue
			}
			if err := l.drop(ctx, job); err != nil {
				l.logger.Error("abandon job", "job_id", job.ID, "error", err)
			}
		default:
			return
		}
	}
}
