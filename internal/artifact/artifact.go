// Package artifact stores uploaded inputs and translated outputs. A location
// returned by Put is the only handle callers keep; it is what travels through
// the queue and what the status store records.
package artifact

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a location does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store is an artifact area: a local directory or an object storage bucket.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) (string, error)
	Get(ctx context.Context, location string) ([]byte, error)
	Remove(ctx context.Context, location string) error
}

// Presigner is implemented by stores that can hand out direct download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, location string, ttl time.Duration) (string, error)
}
