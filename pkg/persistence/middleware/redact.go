package middleware

import (
	"context"

	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/ports"
)

type redactMiddleware struct {
	next ports.RunStore
}

// NewReasoningRedactor creates a middleware that blanks the hidden
// reasoning of every node before a run is archived. The story content
// survives; the model's chain of thought never reaches the store.
// Loads pass through untouched, so already-archived reasoning (if any)
// stays readable.
func NewReasoningRedactor() Middleware {
	return func(next ports.RunStore) ports.RunStore {
		return &redactMiddleware{next: next}
	}
}

func (m *redactMiddleware) Save(ctx context.Context, run *domain.Run) error {
	// Deep clone to avoid side effects on the in-memory run used by the
	// driver: its chain keeps the reasoning for prompt audits.
	cloned := *run
	if run.Chain != nil {
		cloned.Chain = run.Chain.Clone()
		for node := range cloned.Chain.Traverse() {
			node.Reasoning = ""
		}
	}

	return m.next.Save(ctx, &cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, runID string) (*domain.Run, error) {
	return m.next.Load(ctx, runID)
}

func (m *redactMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
