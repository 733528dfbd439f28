package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/aretw0/storychain/pkg/domain"
)

// memAudit captures exchanges for assertions.
type memAudit struct {
	mu      sync.Mutex
	prompts []string
	replies []string
}

func (m *memAudit) Record(ctx context.Context, prompt, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.replies = append(m.replies, response)
	return nil
}

func (m *memAudit) Close() error { return nil }

func (m *memAudit) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(time.Millisecond)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []Option{
		WithEndpoint(srv.URL),
		WithBackOff(fastBackOff),
		WithTimeout(2 * time.Second),
	}
	return New(append(base, opts...)...)
}

func ollamaReply(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	err := json.NewEncoder(w).Encode(map[string]any{
		"response":    text,
		"done":        true,
		"done_reason": "stop",
		"eval_count":  42,
	})
	if err != nil {
		t.Fatalf("encoding reply: %v", err)
	}
}

func TestGenerate_Success(t *testing.T) {
	var gotPath, gotContentType string
	var gotReq generateRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		ollamaReply(t, w, "<think>plan</think>The scene.")
	}, WithModel("test-model"), WithTemperature(0.7))

	raw, err := client.Generate(context.Background(), "write a scene")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if raw != "<think>plan</think>The scene." {
		t.Errorf("raw = %q", raw)
	}

	if gotPath != "/api/generate" {
		t.Errorf("path = %q, want /api/generate", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.Prompt != "write a scene" {
		t.Errorf("prompt = %q", gotReq.Prompt)
	}
	if gotReq.Stream {
		t.Error("stream should be false")
	}
	if gotReq.Options == nil || gotReq.Options.Temperature != 0.7 {
		t.Errorf("options = %+v, want temperature 0.7", gotReq.Options)
	}
}

func TestGenerate_RetriesTransientThenSucceeds(t *testing.T) {
	audit := &memAudit{}
	var calls int

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}
		ollamaReply(t, w, "the scene")
	}, WithAuditLog(audit))

	raw, err := client.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate should succeed within budget: %v", err)
	}
	if raw != "the scene" {
		t.Errorf("raw = %q", raw)
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}

	// Two failures plus the success: three audit records.
	if audit.len() != 3 {
		t.Errorf("audit has %d records, want 3", audit.len())
	}
	audit.mu.Lock()
	defer audit.mu.Unlock()
	for i := 0; i < 2; i++ {
		if len(audit.replies[i]) < 6 || audit.replies[i][:6] != "ERROR:" {
			t.Errorf("audit record %d = %q, want ERROR prefix", i, audit.replies[i])
		}
	}
	if audit.replies[2] != "the scene" {
		t.Errorf("final audit record = %q", audit.replies[2])
	}
}

func TestGenerate_RejectedIsNotRetried(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"model 'nope' not found"}`, http.StatusNotFound)
	})

	_, err := client.Generate(context.Background(), "p")
	if !errors.Is(err, domain.ErrInferenceRejected) {
		t.Fatalf("err = %v, want ErrInferenceRejected", err)
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1 (no retries on 4xx)", calls)
	}
}

func TestGenerate_ExhaustionIsUnavailable(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}, WithMaxAttempts(3))

	_, err := client.Generate(context.Background(), "p")
	if !errors.Is(err, domain.ErrInferenceUnavailable) {
		t.Fatalf("err = %v, want ErrInferenceUnavailable", err)
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
}

func TestGenerate_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // Nothing listens here anymore.

	client := New(
		WithEndpoint(url),
		WithBackOff(fastBackOff),
		WithMaxAttempts(2),
	)

	_, err := client.Generate(context.Background(), "p")
	if !errors.Is(err, domain.ErrInferenceUnavailable) {
		t.Fatalf("err = %v, want ErrInferenceUnavailable", err)
	}
}

func TestGenerate_IncompleteGenerationRetried(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "partial", "done": false})
	}, WithMaxAttempts(2))

	_, err := client.Generate(context.Background(), "p")
	if !errors.Is(err, domain.ErrInferenceUnavailable) {
		t.Fatalf("err = %v, want ErrInferenceUnavailable", err)
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, want 2", calls)
	}
}

func TestGenerate_CancellationAbortsRetryLoop(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}, WithMaxAttempts(10), WithBackOff(func() backoff.BackOff {
		return backoff.NewConstantBackOff(10 * time.Second)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := client.Generate(ctx, "p")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancellation did not abort the backoff wait promptly")
	}
}

func TestGenerate_AttemptTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
			ollamaReply(t, w, "too late")
		}
	}, WithTimeout(30*time.Millisecond), WithMaxAttempts(2))

	start := time.Now()
	_, err := client.Generate(context.Background(), "p")
	if !errors.Is(err, domain.ErrInferenceUnavailable) {
		t.Fatalf("err = %v, want ErrInferenceUnavailable", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("per-attempt timeout did not bound the call")
	}
}
