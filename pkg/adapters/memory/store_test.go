package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/storychain/pkg/adapters/memory"
	"github.com/aretw0/storychain/pkg/domain"
	porttests "github.com/aretw0/storychain/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	porttests.RunStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	run := domain.NewRun("iso", &domain.Premise{Title: "T", Premise: "P"}, 1)
	run.Chain.Append("original", "r")
	if err := store.Save(ctx, run); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutating the caller's run must not leak into the store.
	run.Chain.Append("late addition", "r")

	loaded, err := store.Load(ctx, "iso")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Chain.Len() != 1 {
		t.Errorf("stored chain shares memory with caller: len = %d", loaded.Chain.Len())
	}

	// Mutating a loaded run must not leak back either.
	loaded.Chain.Append("reader addition", "r")
	again, _ := store.Load(ctx, "iso")
	if again.Chain.Len() != 1 {
		t.Error("loaded chain shares memory with the store")
	}
}
