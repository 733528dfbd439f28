package ports

import (
	"context"

	"github.com/aretw0/storychain/pkg/domain"
)

// PremiseLibrary defines how premise artifacts are retrieved by id.
// This allows the storage layer (Loam, FS, Memory) to be decoupled.
type PremiseLibrary interface {
	// Get retrieves and validates the premise with the given id.
	Get(ctx context.Context, id string) (*domain.Premise, error)

	// List returns the ids of every premise available in the library.
	// This is used for discovery surfaces (e.g. 'storychain premise ls',
	// the MCP premises resource).
	List(ctx context.Context) ([]string, error)
}
