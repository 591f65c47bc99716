package status

import (
	"context"
	"fmt"
	"sync"

	"github.com/dharsanguruparan/doctranslate/internal/model"
)

// MemoryStore provides a process-lifetime store using RWMutex. RWMutex lets
// status polls proceed concurrently while the dispatcher holds the write lock
// only for the duration of a single map assignment.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]model.Status
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]model.Status),
	}
}

// Set records st for id if the transition is allowed.
func (m *MemoryStore) Set(ctx context.Context, id string, st model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.jobs[id]
	if !model.CanTransition(cur.State, st.State) {
		return fmt.Errorf("job %s %q -> %q: %w", id, cur.State, st.State, ErrInvalidTransition)
	}
	m.jobs[id] = st
	return nil
}

// Get returns the status for id. model.Status is a value type, so callers
// receive a copy and cannot mutate the stored entry.
func (m *MemoryStore) Get(ctx context.Context, id string) (model.Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.jobs[id]
	if !ok {
		return model.Status{}, ErrNotFound
	}
	return st, nil
}
