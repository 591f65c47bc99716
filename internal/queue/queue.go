// Package queue carries accepted jobs from the HTTP front end to the workers.
// Redis-backed delivery uses asynq; Local keeps everything inside one process.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/doctranslate/internal/model"
)

const (
	// TranslateDocumentTask is scheduled each time a document is uploaded.
	TranslateDocumentTask = "document:translate"
	// DefaultQueue is the asynq queue the worker listens on.
	DefaultQueue = "translations"
	// UnboundedTaskTimeout stands in for "no timeout": asynq replaces a zero
	// timeout with its own 30 minute default.
	UnboundedTaskTimeout = 30 * 24 * time.Hour
)

// Enqueuer hands a job to whatever will process it.
type Enqueuer interface {
	Enqueue(ctx context.Context, job model.Job) error
}

// Handler processes one dequeued job.
type Handler func(ctx context.Context, job model.Job) error

// NewTask serializes job into an asynq task.
func NewTask(job model.Job) (*asynq.Task, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TranslateDocumentTask, data), nil
}

// DecodeJob reads the job back out of a task payload.
func DecodeJob(task *asynq.Task) (model.Job, error) {
	var job model.Job
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return model.Job{}, fmt.Errorf("decode payload: %w", err)
	}
	if job.ID == "" || job.InputPath == "" {
		return model.Job{}, fmt.Errorf("decode payload: missing fileId or filePath")
	}
	return job, nil
}

// Client enqueues jobs into Redis through asynq.
type Client struct {
	client  *asynq.Client
	queue   string
	timeout time.Duration
}

// NewClient wraps an asynq client. An empty queue name selects DefaultQueue
// and a non-positive timeout selects UnboundedTaskTimeout.
func NewClient(client *asynq.Client, queue string, timeout time.Duration) *Client {
	if queue == "" {
		queue = DefaultQueue
	}
	if timeout <= 0 {
		timeout = UnboundedTaskTimeout
	}
	return &Client{client: client, queue: queue, timeout: timeout}
}

func (c *Client) taskOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(c.queue),
		asynq.MaxRetry(0),
		asynq.Timeout(c.timeout),
	}
}

// Enqueue schedules job. Tasks are not retried: a failed job already carries
// its terminal status.
func (c *Client) Enqueue(ctx context.Context, job model.Job) error {
	task, err := NewTask(job)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task, c.taskOptions()...); err != nil {
		return fmt.Errorf("enqueue translate task: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
