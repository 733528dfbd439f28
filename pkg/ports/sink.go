package ports

import (
	"context"

	"github.com/aretw0/storychain/pkg/domain"
)

// ChainSink writes a chain to its durable destination.
// The driver calls it once on completion, and again on failure when
// partial saves are enabled, so implementations must overwrite cleanly.
type ChainSink interface {
	Write(ctx context.Context, chain *domain.Chain) error
}

// ChainSinkFunc adapts a function to the ChainSink interface.
type ChainSinkFunc func(ctx context.Context, chain *domain.Chain) error

func (f ChainSinkFunc) Write(ctx context.Context, chain *domain.Chain) error {
	return f(ctx, chain)
}
