package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/storychain/internal/adapters/file"
	"github.com/aretw0/storychain/internal/adapters/redis"
	"github.com/aretw0/storychain/internal/compiler"
	loamAdapter "github.com/aretw0/storychain/pkg/adapters/loam"
	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/persistence/middleware"
	"github.com/aretw0/storychain/pkg/ports"
	"github.com/aretw0/storychain/pkg/session"
)

// LoadPremise resolves a premise reference with standard CLI conventions:
// a path to a premise document on disk wins, anything else is looked up
// as an id in the artifacts library.
func LoadPremise(ctx context.Context, ref, artifactsDir string) (*domain.Premise, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to read premise file: %w", err)
		}
		return compiler.NewParser().Parse(data)
	}

	library, err := loamAdapter.Open(artifactsDir, false)
	if err != nil {
		return nil, err
	}
	return library.Get(ctx, ref)
}

// OpenSessions builds the run manager for the selected archive backend:
// Redis when a URL is given, the local filesystem otherwise. Redis
// managers get a distributed lock so replicas never grow the same chain.
// Middlewares wrap the store before the manager sees it. The returned
// closer releases the backend connection.
func OpenSessions(dir, redisURL string, logger *slog.Logger, mws ...middleware.Middleware) (*session.Manager, func() error, error) {
	var store ports.RunStore
	closer := func() error { return nil }
	managerOpts := []session.Option{session.WithLogger(logger)}

	if redisURL != "" {
		opts, err := backend.ParseURL(redisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		client := backend.NewClient(opts)
		rstore := redis.NewFromClient(client)
		store = rstore
		closer = rstore.Close
		managerOpts = append(managerOpts, session.WithLocker(redis.NewLocker(client, "storychain:")))
	} else {
		store = file.New(dir)
	}

	for _, mw := range mws {
		store = mw(store)
	}
	return session.NewManager(store, managerOpts...), closer, nil
}
