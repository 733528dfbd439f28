package tests

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/storychain"
	"github.com/aretw0/storychain/internal/presentation/story"
	"github.com/aretw0/storychain/pkg/adapters/memory"
	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/session"
)

// TestGenerate_EndToEnd drives the full pipeline against a fake Ollama
// server: premise in, prompts out, scenes parsed, chain persisted.
func TestGenerate_EndToEnd(t *testing.T) {
	responses := []string{
		"<think>\nOpen on the rock to establish isolation.\n</think>\nThe lighthouse went dark at midnight.",
		"<think>\nBring the stranger in.\n</think>\nA rowboat scraped the shingle below.",
		"<think>\nForce the choice.\n</think>\nElias reached for the master switch.",
	}
	srv := fakeOllama(t, responses)
	defer srv.Close()

	dir := t.TempDir()
	outPath := filepath.Join(dir, "story.json")
	auditPath := filepath.Join(dir, "audit.log")

	eng, err := storychain.New(testPremise(),
		storychain.WithEndpoint(srv.URL),
		storychain.WithOutput(outPath),
		storychain.WithAuditLog(auditPath),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer eng.Close()

	chain, err := eng.Generate(context.Background(), 3)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if chain.Len() != 3 {
		t.Fatalf("chain.Len() = %d, want 3", chain.Len())
	}

	// The chain must stay linear from the root to the tail.
	root, ok := chain.Get(domain.RootID)
	if !ok {
		t.Fatal("root node missing")
	}
	if !root.IsRoot() {
		t.Error("root node does not report IsRoot")
	}
	if root.Content != "The lighthouse went dark at midnight." {
		t.Errorf("root content = %q", root.Content)
	}

	var visited int
	for node := range chain.Traverse() {
		visited++
		if node.IsTail() && node.Content != "Elias reached for the master switch." {
			t.Errorf("tail content = %q", node.Content)
		}
	}
	if visited != 3 {
		t.Errorf("traversal visited %d nodes, want 3", visited)
	}

	// The sink output round-trips back into an identical chain.
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("story file not written: %v", err)
	}
	restored := domain.NewChain()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("story file does not parse: %v", err)
	}
	if restored.Len() != 3 {
		t.Errorf("restored chain has %d nodes, want 3", restored.Len())
	}

	// Every exchange is audited, prompt and response.
	audit, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("audit log not written: %v", err)
	}
	if !strings.Contains(string(audit), "rowboat") {
		t.Error("audit log is missing the second response")
	}

	// The rendered markdown carries the reasoning alongside each scene.
	md := story.Render(chain)
	if !strings.Contains(md, "## Scene 3") {
		t.Error("markdown is missing the third scene heading")
	}
	if !strings.Contains(md, "Force the choice.") {
		t.Error("markdown is missing the reasoning block")
	}
}

// TestGenerate_FailureKeepsPartial stops the model after two scenes and
// checks that the partial chain survives, on disk and in the archive.
func TestGenerate_FailureKeepsPartial(t *testing.T) {
	responses := []string{
		"First scene.",
		"Second scene.",
	}
	srv := fakeOllama(t, responses) // 400 after the scripted responses run out
	defer srv.Close()

	dir := t.TempDir()
	outPath := filepath.Join(dir, "story.json")
	sessions := session.NewManager(memory.NewStore())

	eng, err := storychain.New(testPremise(),
		storychain.WithEndpoint(srv.URL),
		storychain.WithOutput(outPath),
		storychain.WithStore(sessions, "run-partial"),
		storychain.WithPartialSave(true),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer eng.Close()

	chain, err := eng.Generate(context.Background(), 5)
	if err == nil {
		t.Fatal("Generate() succeeded, want failure on epoch 2")
	}

	var runErr *domain.RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("error is %T, want *domain.RunError", err)
	}
	if runErr.Epoch != 2 {
		t.Errorf("RunError.Epoch = %d, want 2", runErr.Epoch)
	}
	if !errors.Is(err, domain.ErrInferenceRejected) {
		t.Errorf("error does not unwrap to ErrInferenceRejected: %v", err)
	}

	if chain.Len() != 2 {
		t.Errorf("partial chain has %d scenes, want 2", chain.Len())
	}

	// Partial save flushed the two scenes to the sink.
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("partial story not written: %v", err)
	}
	restored := domain.NewChain()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("partial story does not parse: %v", err)
	}
	if restored.Len() != 2 {
		t.Errorf("partial story has %d scenes, want 2", restored.Len())
	}

	// The archive records the failure with the partial chain attached.
	run, err := sessions.Load(context.Background(), "run-partial")
	if err != nil {
		t.Fatalf("archived run not found: %v", err)
	}
	if run.Status != domain.RunStatusFailed {
		t.Errorf("run status = %q, want failed", run.Status)
	}
	if run.Error == "" {
		t.Error("run error field is empty")
	}
	if run.Chain == nil || run.Chain.Len() != 2 {
		t.Error("archived run lost the partial chain")
	}
}

// TestGenerate_ResumeAcrossEngines archives a run with one engine and
// extends it with a second, simulating a process restart.
func TestGenerate_ResumeAcrossEngines(t *testing.T) {
	responses := []string{
		"Scene one.",
		"Scene two.",
		"Scene three.",
		"Scene four.",
	}
	srv := fakeOllama(t, responses)
	defer srv.Close()

	sessions := session.NewManager(memory.NewStore())
	ctx := context.Background()

	first, err := storychain.New(testPremise(),
		storychain.WithEndpoint(srv.URL),
		storychain.WithStore(sessions, "run-resume"),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := first.Generate(ctx, 2); err != nil {
		t.Fatalf("first Generate() error: %v", err)
	}
	first.Close()

	run, err := sessions.Load(ctx, "run-resume")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if run.Chain.Len() != 2 {
		t.Fatalf("archived chain has %d scenes, want 2", run.Chain.Len())
	}

	second, err := storychain.New(testPremise(),
		storychain.WithEndpoint(srv.URL),
		storychain.WithStore(sessions, "run-resume"),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer second.Close()

	if err := second.Extend(ctx, run.Chain, 2); err != nil {
		t.Fatalf("Extend() error: %v", err)
	}
	if run.Chain.Len() != 4 {
		t.Errorf("extended chain has %d scenes, want 4", run.Chain.Len())
	}

	// Continuation prompts quote the archived scenes, not just the new ones.
	prompts := srv.Prompts()
	if len(prompts) != 4 {
		t.Fatalf("server saw %d prompts, want 4", len(prompts))
	}
	if !strings.Contains(prompts[2], "Scene two.") {
		t.Error("first continuation prompt does not quote the archived tail")
	}

	final, err := sessions.Load(ctx, "run-resume")
	if err != nil {
		t.Fatalf("Load() after extend error: %v", err)
	}
	if final.Status != domain.RunStatusCompleted {
		t.Errorf("final status = %q, want completed", final.Status)
	}
	if final.Chain.Len() != 4 {
		t.Errorf("final archived chain has %d scenes, want 4", final.Chain.Len())
	}
}
