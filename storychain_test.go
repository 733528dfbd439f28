package storychain_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/storychain"
	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/inference"
)

func testPremise() *domain.Premise {
	return &domain.Premise{
		Title:   "The Last Signal",
		Genre:   "mystery",
		Premise: "A radio operator hears a broadcast from a station that burned down years ago.",
	}
}

// sceneSource replays canned scenes in order, standing in for a model.
type sceneSource struct {
	scenes []string
	calls  int
}

func (s *sceneSource) Generate(ctx context.Context, prompt string) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.scenes) {
		return "", fmt.Errorf("%w: no scenes left", domain.ErrInferenceUnavailable)
	}
	return fmt.Sprintf("<think>beat %d</think>%s", i+1, s.scenes[i]), nil
}

func TestFacade_Integration(t *testing.T) {
	// 0. Setup output location and a canned generator
	outPath := filepath.Join(t.TempDir(), "story.json")
	gen := &sceneSource{scenes: []string{
		"The lighthouse keeper finds the door open.",
		"Footprints lead down to the waterline.",
	}}

	// 1. Test initialization
	engine, err := storychain.New(testPremise(),
		storychain.WithGenerator(gen),
		storychain.WithOutput(outPath),
	)
	if err != nil {
		t.Fatalf("Failed to initialize engine: %v", err)
	}
	defer engine.Close()

	// 2. Generate two scenes
	chain, err := engine.Generate(context.Background(), 2)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if chain.Len() != 2 {
		t.Fatalf("chain has %d nodes, want 2", chain.Len())
	}
	if err := chain.Verify(); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	// 3. The persisted file round-trips to the same chain
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var stored domain.Chain
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if stored.Len() != 2 {
		t.Errorf("stored chain has %d nodes, want 2", stored.Len())
	}
	root := stored.Root()
	if root == nil || root.Content != "The lighthouse keeper finds the door open." {
		t.Errorf("stored root = %+v", root)
	}
}

func TestNew_ValidatesPremise(t *testing.T) {
	if _, err := storychain.New(nil); !errors.Is(err, domain.ErrInvalidPremise) {
		t.Errorf("nil premise error = %v, want ErrInvalidPremise", err)
	}

	missing := &domain.Premise{Genre: "mystery"}
	if _, err := storychain.New(missing); !errors.Is(err, domain.ErrInvalidPremise) {
		t.Errorf("missing title error = %v, want ErrInvalidPremise", err)
	}
}

func TestNew_DefaultsToInferenceClient(t *testing.T) {
	engine, err := storychain.New(testPremise())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := engine.Generator().(*inference.Client); !ok {
		t.Errorf("default generator is %T, want *inference.Client", engine.Generator())
	}
}

func TestEngine_Extend(t *testing.T) {
	gen := &sceneSource{scenes: []string{
		"Scene one.", "Scene two.", "Scene three.",
	}}
	engine, err := storychain.New(testPremise(), storychain.WithGenerator(gen))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	chain, err := engine.Generate(ctx, 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if err := engine.Extend(ctx, chain, 2); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if chain.Len() != 3 {
		t.Fatalf("chain has %d nodes, want 3", chain.Len())
	}
	if tail := chain.Tail(); tail.ID != "node_2" || tail.Content != "Scene three." {
		t.Errorf("tail = %+v", tail)
	}
}

func TestEngine_PartialSaveOnFailure(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "story.json")
	gen := &sceneSource{scenes: []string{"Only scene."}}

	engine, err := storychain.New(testPremise(),
		storychain.WithGenerator(gen),
		storychain.WithOutput(outPath),
		storychain.WithPartialSave(true),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// The generator dries up on the second epoch.
	chain, err := engine.Generate(context.Background(), 3)
	if !errors.Is(err, domain.ErrInferenceUnavailable) {
		t.Fatalf("error = %v, want ErrInferenceUnavailable", err)
	}
	if chain.Len() != 1 {
		t.Errorf("returned chain has %d nodes, want 1", chain.Len())
	}

	var runErr *domain.RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("error %T is not a *domain.RunError", err)
	}
	if runErr.Epoch != 1 {
		t.Errorf("failing epoch = %d, want 1", runErr.Epoch)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("partial save missing: %v", err)
	}
	var stored domain.Chain
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("decoding partial save: %v", err)
	}
	if stored.Len() != 1 {
		t.Errorf("partial chain has %d nodes, want 1", stored.Len())
	}
}

func TestEngine_DefaultClientWithAuditLog(t *testing.T) {
	// A fake Ollama endpoint so the default client path is exercised
	// end to end, audit file included.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"response": "<think>open quietly</think>The station hums at midnight.",
			"done":     true,
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	auditPath := filepath.Join(dir, "ai_log.txt")

	engine, err := storychain.New(testPremise(),
		storychain.WithEndpoint(srv.URL),
		storychain.WithModel("test-model"),
		storychain.WithAuditLog(auditPath),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	chain, err := engine.Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := chain.Root().Content; got != "The station hums at midnight." {
		t.Errorf("content = %q", got)
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("audit log missing: %v", err)
	}
	log := string(data)
	if !strings.Contains(log, "=== AI Response at ") {
		t.Error("audit log is missing the exchange header")
	}
	if !strings.Contains(log, "Response: <think>open quietly</think>") {
		t.Error("audit log does not record the raw response")
	}
}
