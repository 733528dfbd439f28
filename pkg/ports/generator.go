package ports

import (
	"context"

	"github.com/aretw0/storychain/pkg/domain"
)

// Generator defines how raw model text is produced for a prompt.
// Implementations own their transport, retries, and auditing; by the time
// Generate returns, the retry budget has been spent.
type Generator interface {
	// Generate sends the prompt to the model and returns the raw response.
	// Errors wrap domain.ErrInferenceUnavailable (transport exhausted) or
	// domain.ErrInferenceRejected (request refused, not retryable).
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptBuilder assembles the prompt for one epoch.
// prior holds every scene generated so far in chain order; implementations
// decide how much of it to quote.
type PromptBuilder interface {
	Build(premise *domain.Premise, prior []*domain.Node, epoch int) string
}
