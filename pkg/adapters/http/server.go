package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/storychain"
	"github.com/aretw0/storychain/internal/compiler"
	"github.com/aretw0/storychain/internal/logging"
	"github.com/aretw0/storychain/internal/presentation/story"
	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/session"
)

// Engine is the slice of the generation facade the server drives for one run.
type Engine interface {
	Generate(ctx context.Context, epochs int) (*domain.Chain, error)
	Close() error
}

// Factory builds one isolated Engine per accepted run. Each call must
// return an engine with its own client and audit target; concurrent runs
// share nothing but the run store.
type Factory func(premise *domain.Premise, runID string, hooks domain.LifecycleHooks) (Engine, error)

// DefaultFactory builds engines backed by the default inference client,
// archiving progress to the given manager. Extra options (endpoint,
// model, window) are appended after the server wiring so callers can
// tune the client without touching hooks or the store.
func DefaultFactory(sessions *session.Manager, opts ...storychain.Option) Factory {
	return func(premise *domain.Premise, runID string, hooks domain.LifecycleHooks) (Engine, error) {
		all := append([]storychain.Option{
			storychain.WithStore(sessions, runID),
			storychain.WithLifecycleHooks(hooks),
			storychain.WithPartialSave(true),
		}, opts...)
		return storychain.New(premise, all...)
	}
}

// Server exposes generation runs over HTTP.
type Server struct {
	sessions *session.Manager
	factory  Factory
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	metrics  http.Handler
	streams  *StreamManager

	// baseCtx bounds the lifetime of run goroutines so they stop with
	// the process, not with the request that started them.
	baseCtx context.Context
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHooks attaches extra lifecycle hooks (e.g. metrics collectors) to
// every run, merged with the event stream hooks.
func WithHooks(hooks domain.LifecycleHooks) ServerOption {
	return func(s *Server) {
		s.hooks = hooks
	}
}

// WithMetricsHandler mounts handler at GET /metrics.
func WithMetricsHandler(handler http.Handler) ServerOption {
	return func(s *Server) {
		s.metrics = handler
	}
}

// WithBaseContext sets the context run goroutines inherit. Cancel it to
// stop in-flight runs; partial saves still complete on a detached
// timeout.
func WithBaseContext(ctx context.Context) ServerOption {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// NewServer creates a Server around the session manager and engine factory.
func NewServer(sessions *session.Manager, factory Factory, opts ...ServerOption) *Server {
	s := &Server{
		sessions: sessions,
		factory:  factory,
		baseCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.streams = NewStreamManager(s.logger)
	return s
}

// Handler returns the chi router for the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.getHealth)
	r.Get("/info", s.getInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.createRun)
		r.Get("/", s.listRuns)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", s.getRun)
			r.Delete("/", s.deleteRun)
			r.Get("/story", s.getStory)
			r.Get("/markdown", s.getMarkdown)
			r.Get("/events", s.subscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateRunRequest is the body of POST /runs. Premise is a full premise
// document (frontmatter, YAML, or JSON), parsed server-side.
type CreateRunRequest struct {
	Premise string `json:"premise"`
	Epochs  int    `json:"epochs"`
	RunID   string `json:"run_id,omitempty"`
}

// CreateRunResponse acknowledges an accepted run.
type CreateRunResponse struct {
	RunID string `json:"run_id"`
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var body CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("CreateRun: Invalid request body", "err", err)
		return
	}
	if body.Premise == "" {
		http.Error(w, "premise is required", http.StatusBadRequest)
		return
	}
	if body.Epochs < 1 {
		http.Error(w, "epochs must be at least 1", http.StatusBadRequest)
		return
	}

	premise, err := compiler.NewParser().Parse([]byte(body.Premise))
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid premise: %v", err), http.StatusBadRequest)
		s.logger.Warn("CreateRun: Premise rejected", "err", err)
		return
	}

	runID := body.RunID
	if runID == "" {
		runID = session.NewRunID()
	} else if _, err := s.sessions.Load(r.Context(), runID); err == nil {
		http.Error(w, fmt.Sprintf("run %q already exists", runID), http.StatusConflict)
		return
	} else if !errors.Is(err, domain.ErrRunNotFound) {
		http.Error(w, fmt.Sprintf("Store error: %v", err), http.StatusInternalServerError)
		return
	}

	// Reserve the record before answering so GET /runs/{id} works as
	// soon as the 202 lands.
	if _, err := s.sessions.LoadOrCreate(r.Context(), runID, premise, body.Epochs); err != nil {
		http.Error(w, fmt.Sprintf("Store error: %v", err), http.StatusInternalServerError)
		s.logger.Error("CreateRun: Reservation failed", "run_id", runID, "err", err)
		return
	}

	hooks := domain.MergeHooks(s.hooks, s.runHooks(runID))
	engine, err := s.factory(premise, runID, hooks)
	if err != nil {
		http.Error(w, fmt.Sprintf("Engine error: %v", err), http.StatusInternalServerError)
		s.logger.Error("CreateRun: Factory failed", "run_id", runID, "err", err)
		return
	}

	go s.execute(runID, engine, body.Epochs)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(CreateRunResponse{RunID: runID}); err != nil {
		s.logger.Error("CreateRun response encode failed", "err", err)
	}
}

// execute drives one run to completion on its own goroutine.
func (s *Server) execute(runID string, engine Engine, epochs int) {
	defer func() {
		if err := engine.Close(); err != nil {
			s.logger.Warn("Engine close failed", "run_id", runID, "err", err)
		}
	}()

	start := time.Now()
	s.logger.Info("Run started", "run_id", runID, "epochs", epochs)

	if _, err := engine.Generate(s.baseCtx, epochs); err != nil {
		s.logger.Error("Run failed", "run_id", runID, "err", err)
		return
	}
	s.logger.Info("Run completed", "run_id", runID, "duration", time.Since(start))
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.logger.Error("ListRuns failed", "err", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"runs": ids}); err != nil {
		s.logger.Error("ListRuns response encode failed", "err", err)
	}
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(run); err != nil {
		s.logger.Error("GetRun response encode failed", "err", err)
	}
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.loadRun(w, r); !ok {
		return
	}

	runID := chi.URLParam(r, "runID")
	if err := s.sessions.Delete(r.Context(), runID); err != nil {
		http.Error(w, fmt.Sprintf("Delete error: %v", err), http.StatusInternalServerError)
		s.logger.Error("DeleteRun failed", "run_id", runID, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getStory serves the chain in the persisted output format.
func (s *Server) getStory(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	chain := run.Chain
	if chain == nil {
		chain = domain.NewChain()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(chain); err != nil {
		s.logger.Error("GetStory response encode failed", "err", err)
	}
}

func (s *Server) getMarkdown(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, story.Render(run.Chain))
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"app":     "storychain-http",
		"version": storychain.Version,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// loadRun resolves {runID} and writes the error response itself when the
// run cannot be served.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*domain.Run, bool) {
	runID := chi.URLParam(r, "runID")
	run, err := s.sessions.Load(r.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			http.Error(w, fmt.Sprintf("run %q not found", runID), http.StatusNotFound)
			return nil, false
		}
		http.Error(w, fmt.Sprintf("Store error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Run load failed", "run_id", runID, "err", err)
		return nil, false
	}
	return run, true
}

// RunEvent is the wire shape of one SSE payload.
type RunEvent struct {
	Type      domain.EventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	RunID     string           `json:"run_id"`
	Epoch     int              `json:"epoch"`
	From      domain.Phase     `json:"from,omitempty"`
	To        domain.Phase     `json:"to,omitempty"`
	NodeID    string           `json:"node_id,omitempty"`
	Attempt   int              `json:"attempt,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// runHooks bridges driver lifecycle events onto the run's SSE stream.
func (s *Server) runHooks(runID string) domain.LifecycleHooks {
	publish := func(ev RunEvent) {
		ev.RunID = runID
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		s.streams.Broadcast(runID, string(payload))
	}

	return domain.LifecycleHooks{
		OnPhaseChange: func(_ context.Context, e *domain.PhaseEvent) {
			publish(RunEvent{Type: e.Type, Timestamp: e.Timestamp, From: e.From, To: e.To})
		},
		OnEpochStart: func(_ context.Context, e *domain.EpochEvent) {
			publish(RunEvent{Type: e.Type, Timestamp: e.Timestamp, Epoch: e.Epoch})
		},
		OnEpochEnd: func(_ context.Context, e *domain.EpochEvent) {
			ev := RunEvent{Type: e.Type, Timestamp: e.Timestamp, Epoch: e.Epoch, NodeID: e.NodeID}
			if e.Err != nil {
				ev.Error = e.Err.Error()
			}
			publish(ev)
		},
		OnInferenceStart: func(_ context.Context, e *domain.InferenceEvent) {
			publish(RunEvent{Type: e.Type, Timestamp: e.Timestamp, Epoch: e.Epoch, Attempt: e.Attempt})
		},
		OnInferenceEnd: func(_ context.Context, e *domain.InferenceEvent) {
			ev := RunEvent{Type: e.Type, Timestamp: e.Timestamp, Epoch: e.Epoch, Attempt: e.Attempt}
			if e.Err != nil {
				ev.Error = e.Err.Error()
			}
			publish(ev)
		},
		OnNodeAppended: func(_ context.Context, e *domain.EpochEvent) {
			publish(RunEvent{Type: e.Type, Timestamp: e.Timestamp, Epoch: e.Epoch, NodeID: e.NodeID})
		},
	}
}

// subscribeEvents handles GET /runs/{id}/events (SSE).
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.loadRun(w, r); !ok {
		return
	}
	runID := chi.URLParam(r, "runID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(runID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "run_id", runID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // RunID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(runID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[runID]; !ok {
		sm.subscribers[runID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[runID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[runID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, runID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(runID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if subs, ok := sm.subscribers[runID]; ok {
		for ch := range subs {
			select {
			case ch <- msg:
			default:
				// Drop message if channel is full (slow client)
				sm.logger.Warn("SSE: Client buffer full, dropping message", "run_id", runID)
			}
		}
	}
}
