package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/doctranslate/internal/model"
)

func TestTaskRoundTrip(t *testing.T) {
	job := model.Job{ID: "abc", InputPath: "uploads/abc-hello.txt", TargetLanguage: "es", OriginalName: "hello.txt"}
	task, err := NewTask(job)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TranslateDocumentTask {
		t.Fatalf("unexpected task type %q", task.Type())
	}
	got, err := DecodeJob(task)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != job {
		t.Fatalf("expected %+v, got %+v", job, got)
	}
}

func TestDecodeJobRejectsIncompletePayload(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":   "{",
		"no id":      `{"filePath":"x"}`,
		"no path":    `{"fileId":"x"}`,
		"empty body": `{}`,
	} {
		if _, err := DecodeJob(asynq.NewTask(TranslateDocumentTask, []byte(payload))); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLocalProcessesEveryJob(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		done = make(chan struct{}, 8)
	)
	pool := NewLocal(3, func(ctx context.Context, job model.Job) error {
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		if err := pool.Enqueue(ctx, model.Job{ID: id}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	for range ids {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	cancel()
	pool.Wait()

	for _, id := range ids {
		if !seen[id] {
			t.Fatalf("job %s was not processed", id)
		}
	}
}

func TestLocalEnqueueFull(t *testing.T) {
	// Workers are never started so the buffer fills up.
	pool := NewLocal(1, func(context.Context, model.Job) error { return nil }, nil)
	ctx := context.Background()
	var err error
	for i := 0; i < cap(pool.jobs)+1; i++ {
		err = pool.Enqueue(ctx, model.Job{ID: "x"})
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestLocalShutdownHandsBufferedJobsToDrop(t *testing.T) {
	var (
		mu      sync.Mutex
		handled []string
		dropped []string
	)
	pool := NewLocal(2, func(ctx context.Context, job model.Job) error {
		mu.Lock()
		handled = append(handled, job.ID)
		mu.Unlock()
		return nil
	}, nil).OnShutdown(func(ctx context.Context, job model.Job) error {
		if ctx.Err() == nil {
			t.Errorf("drop for %s called before cancellation", job.ID)
		}
		mu.Lock()
		dropped = append(dropped, job.ID)
		mu.Unlock()
		return nil
	})

	for _, id := range []string{"a", "b", "c"} {
		if err := pool.Enqueue(context.Background(), model.Job{ID: id}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pool.Start(ctx)
	pool.Wait()

	if len(handled) != 0 {
		t.Fatalf("no job should run after cancellation, ran %v", handled)
	}
	if len(dropped) != 3 {
		t.Fatalf("expected 3 abandoned jobs, got %v", dropped)
	}
	if len(pool.jobs) != 0 {
		t.Fatalf("buffer not drained: %d left", len(pool.jobs))
	}
}

func TestClientTaskOptions(t *testing.T) {
	cases := map[string]struct {
		timeout time.Duration
		want    time.Duration
	}{
		"unset":    {timeout: 0, want: UnboundedTaskTimeout},
		"negative": {timeout: -time.Second, want: UnboundedTaskTimeout},
		"explicit": {timeout: 2 * time.Hour, want: 2 * time.Hour},
	}
	for name, tc := range cases {
		c := NewClient(nil, "", tc.timeout)
		var (
			gotTimeout time.Duration
			gotQueue   string
			gotRetry   = -1
		)
		for _, opt := range c.taskOptions() {
			switch opt.Type() {
			case asynq.TimeoutOpt:
				gotTimeout = opt.Value().(time.Duration)
			case asynq.QueueOpt:
				gotQueue = opt.Value().(string)
			case asynq.MaxRetryOpt:
				gotRetry = opt.Value().(int)
			}
		}
		if gotTimeout != tc.want {
			t.Errorf("%s: timeout = %s, want %s", name, gotTimeout, tc.want)
		}
		if gotQueue != DefaultQueue || gotRetry != 0 {
			t.Errorf("%s: queue=%q retry=%d", name, gotQueue, gotRetry)
		}
	}
}
