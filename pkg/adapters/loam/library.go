// Package loam adapts the Loam content repository into a premise
// library: a directory of markdown artifacts, one premise per file.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/storychain/internal/compiler"
	"github.com/aretw0/storychain/pkg/domain"
)

// Library adapts the Loam library to a premise collection. Premise
// documents carry their structured fields in YAML frontmatter; the
// markdown body is the premise text.
type Library struct {
	Repo *loam.TypedRepository[PremiseMetadata]
}

// New creates a library over an existing typed repository.
func New(repo *loam.TypedRepository[PremiseMetadata]) *Library {
	return &Library{Repo: repo}
}

// Open initializes a library over the given artifacts directory.
//
// Loads run in strict read-only mode: generation only ever reads
// premises, and read-only keeps Loam's sandbox behavior off in dev
// trees. Writable mode is for scaffolding and disables versioning so
// Put stays pure file generation.
func Open(dir string, writable bool) (*Library, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	opts := []loam.Option{loam.WithStrict(true)}
	if writable {
		opts = append(opts, loam.WithVersioning(false))
	} else {
		opts = append(opts, loam.WithReadOnly(true))
	}

	repo, err := loam.Init(absPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[PremiseMetadata](repo)), nil
}

// Get retrieves one premise by artifact id (filename without extension).
func (l *Library) Get(ctx context.Context, id string) (*domain.Premise, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
	}
	premise, err := buildPremise(doc.Data, doc.Content)
	if err != nil {
		return nil, fmt.Errorf("premise %s: %w", id, err)
	}
	return premise, nil
}

// List returns the ids of every premise artifact in the library.
func (l *Library) List(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id := trimExtension(doc.ID)

		// Collision detection: two files must not normalize to one id.
		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: id '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids, nil
}

// Put writes a premise document, used for scaffolding new artifacts.
// The premise text becomes the markdown body; everything else goes to
// the frontmatter.
func (l *Library) Put(ctx context.Context, id string, premise *domain.Premise) error {
	if err := premise.Validate(); err != nil {
		return err
	}

	meta := PremiseMetadata{
		Title:        premise.Title,
		Genre:        premise.Genre,
		Setting:      premise.Setting,
		TimePeriod:   premise.TimePeriod,
		Themes:       premise.Themes,
		PlotElements: premise.PlotElements,
	}
	for _, c := range premise.Characters {
		entry := map[string]any{"name": c.Name}
		if c.Description != "" {
			entry["description"] = c.Description
		}
		if c.Arc != "" {
			entry["arc"] = c.Arc
		}
		meta.Characters = append(meta.Characters, entry)
	}

	err := l.Repo.Save(ctx, &loam.DocumentModel[PremiseMetadata]{
		ID:      id,
		Content: premise.Premise,
		Data:    meta,
	})
	if err != nil {
		return fmt.Errorf("loam save failed for %s: %w", id, err)
	}
	return nil
}

// buildPremise merges frontmatter metadata with the document body.
func buildPremise(meta PremiseMetadata, body string) (*domain.Premise, error) {
	premise := &domain.Premise{
		Title:        meta.Title,
		Genre:        meta.Genre,
		Setting:      meta.Setting,
		TimePeriod:   meta.TimePeriod,
		Premise:      meta.Premise,
		Themes:       meta.Themes,
		PlotElements: meta.PlotElements,
	}

	// The body is authoritative when present.
	if text := strings.TrimSpace(body); text != "" {
		premise.Premise = text
	}

	characters, err := compiler.DecodeCharacters(meta.Characters)
	if err != nil {
		return nil, err
	}
	premise.Characters = characters

	if err := premise.Validate(); err != nil {
		return nil, err
	}
	return premise, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
