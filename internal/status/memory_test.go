package status

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dharsanguruparan/doctranslate/internal/model"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	testStoreLifecycle(t, NewMemoryStore())
}

func TestMemoryStoreSingleTerminalTransition(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, "job", model.Processing()); err != nil {
		t.Fatalf("set processing: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st := model.Completed("out.txt")
			if i%2 == 0 {
				st = model.Failed("Processing failed")
			}
			if err := store.Set(ctx, "job", st); err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if applied != 1 {
		t.Fatalf("expected exactly one terminal transition, got %d", applied)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Set(ctx, "job", model.Processing())
	st, _ := store.Get(ctx, "job")
	st.State = model.StateFailed
	again, _ := store.Get(ctx, "job")
	if again.State != model.StateProcessing {
		t.Fatalf("stored status mutated through copy: %q", again.State)
	}
}

// testStoreLifecycle runs the behaviour every Store implementation shares.
func testStoreLifecycle(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, "early", model.Completed("x")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for terminal without processing, got %v", err)
	}

	if err := store.Set(ctx, "a", model.Processing()); err != nil {
		t.Fatalf("set processing: %v", err)
	}
	st, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.State != model.StateProcessing {
		t.Fatalf("expected processing, got %q", st.State)
	}
	if err := store.Set(ctx, "a", model.Processing()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected duplicate processing to be rejected, got %v", err)
	}

	if err := store.Set(ctx, "a", model.Completed("a_translated.txt")); err != nil {
		t.Fatalf("set completed: %v", err)
	}
	st, err = store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.State != model.StateCompleted || st.OutputPath != "a_translated.txt" {
		t.Fatalf("unexpected status %+v", st)
	}
	if err := store.Set(ctx, "a", model.Failed("late")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected terminal status to be final, got %v", err)
	}

	if err := store.Set(ctx, "b", model.Processing()); err != nil {
		t.Fatalf("set processing: %v", err)
	}
	if err := store.Set(ctx, "b", model.Failed("Invalid or empty ZIP file")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	st, _ = store.Get(ctx, "b")
	if st.State != model.StateFailed || st.Error != "Invalid or empty ZIP file" {
		t.Fatalf("unexpected status %+v", st)
	}
}
