package ports

import (
	"context"

	"github.com/aretw0/storychain/pkg/domain"
)

// RunStore defines the interface for archiving generation runs.
// This allows for durable runs, enabling "Stop & Resume" workflows and
// post-hoc inspection of what was generated.
type RunStore interface {
	// Save persists the run, keyed by run.ID.
	Save(ctx context.Context, run *domain.Run) error

	// Load retrieves the run for a given ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, id string) (*domain.Run, error)

	// Delete removes the run for a given ID.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all archived runs.
	List(ctx context.Context) ([]string, error)
}
