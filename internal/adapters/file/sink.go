package file

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/storychain/pkg/domain"
)

// Sink implements ports.ChainSink by writing the chain to a single JSON
// file (the classic story.json). Writes are atomic so an interrupted save
// leaves the previous story intact.
type Sink struct {
	Path string
}

// NewSink creates a sink writing to path, defaulting to "story.json".
func NewSink(path string) *Sink {
	if path == "" {
		path = "story.json"
	}
	return &Sink{Path: path}
}

// Write serializes the chain and replaces the destination file.
func (s *Sink) Write(ctx context.Context, chain *domain.Chain) error {
	data, err := json.MarshalIndent(chain, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal chain: %v", domain.ErrPersistenceFailure, err)
	}

	if err := writeAtomic(s.Path, data); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}
