// Package status keeps the lifecycle state of every accepted job. Stores only
// accept the transitions allowed by model.CanTransition, so a job moves from
// processing to a terminal state exactly once.
package status

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/doctranslate/internal/model"
)

var (
	// ErrNotFound is returned by Get for job ids that were never accepted.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidTransition is returned by Set when the new status does not
	// follow from the current one.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store maps job ids to their current status.
type Store interface {
	Set(ctx context.Context, id string, st model.Status) error
	Get(ctx context.Context, id string) (model.Status, error)
}
