package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract is a reusable test suite that verifies if an adapter complies with ports.RunStore.
func RunStoreContract(t *testing.T, store ports.RunStore) {
	t.Helper()

	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	premise := &domain.Premise{
		Title:   "Contract Story",
		Premise: "A premise used to exercise the archive contract.",
	}

	t.Run("Save and Load", func(t *testing.T) {
		// 1. Create a run with a couple of scenes
		run := domain.NewRun(runID, premise, 5)
		run.Chain.Append("The opening scene.", "Establish the premise.")
		run.Chain.Append("The second scene.", "Raise the stakes.")

		// 2. Save
		err := store.Save(ctx, run)
		require.NoError(t, err, "Save should not return error")

		// 3. Load
		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, run.ID, loaded.ID)
		assert.Equal(t, domain.RunStatusRunning, loaded.Status)
		assert.Equal(t, 5, loaded.EpochsRequested)
		require.NotNil(t, loaded.Premise)
		assert.Equal(t, premise.Title, loaded.Premise.Title)

		// 4. The chain survives the round trip in order
		require.NotNil(t, loaded.Chain)
		assert.Equal(t, 2, loaded.Chain.Len())
		require.NoError(t, loaded.Chain.Verify())
		tail := loaded.Chain.Tail()
		require.NotNil(t, tail)
		assert.Equal(t, "The second scene.", tail.Content)
	})

	t.Run("Overwrite", func(t *testing.T) {
		run := domain.NewRun(runID, premise, 5)
		run.Chain.Append("Rewritten opening.", "r")
		run.Complete()
		require.NoError(t, store.Save(ctx, run))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunStatusCompleted, loaded.Status)
		assert.Equal(t, 1, loaded.Chain.Len())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		// Setup
		err := store.Save(ctx, domain.NewRun(runID, premise, 1))
		require.NoError(t, err)

		// Delete
		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		// Verify gone
		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		// Setup: Create 2 runs
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, domain.NewRun(id1, premise, 1))
		_ = store.Save(ctx, domain.NewRun(id2, premise, 1))

		// Ensure cleanup
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		// List
		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
