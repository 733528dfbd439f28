package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aretw0/storychain/pkg/domain"
)

// ollamaServer is a scripted stand-in for a local Ollama instance.
// Each request consumes the next scripted response; once the script is
// exhausted it answers 400 so runs fail fast instead of retrying.
type ollamaServer struct {
	*httptest.Server

	mu      sync.Mutex
	script  []string
	prompts []string
}

// Prompts returns the prompts received so far, in order.
func (s *ollamaServer) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

func fakeOllama(t *testing.T, script []string) *ollamaServer {
	t.Helper()

	srv := &ollamaServer{script: script}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}

		srv.mu.Lock()
		srv.prompts = append(srv.prompts, req.Prompt)
		idx := len(srv.prompts) - 1
		var response string
		if idx < len(srv.script) {
			response = srv.script[idx]
		}
		srv.mu.Unlock()

		if response == "" {
			http.Error(w, "script exhausted", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"response": response,
			"done":     true,
		})
	}))
	return srv
}

// testPremise builds a minimal valid premise for integration runs.
func testPremise() *domain.Premise {
	return &domain.Premise{
		Title:   "The Last Lighthouse",
		Genre:   "Literary Fiction",
		Premise: "An aging keeper refuses to leave his decommissioned lighthouse.",
		Characters: []domain.Character{
			{Name: "Elias Thorn"},
			{Name: "Mara"},
		},
	}
}
