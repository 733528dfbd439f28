package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/storychain"
	"github.com/aretw0/storychain/internal/compiler"
	"github.com/aretw0/storychain/internal/logging"
	"github.com/aretw0/storychain/internal/presentation/story"
	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/ports"
	"github.com/aretw0/storychain/pkg/session"
)

// RunSummary is the structured result of a generate_story call.
type RunSummary struct {
	RunID   string `json:"run_id" jsonschema_description:"Archive ID of the run"`
	Status  string `json:"status" jsonschema_description:"Final run status (completed or failed)"`
	Scenes  int    `json:"scenes" jsonschema_description:"Number of scenes in the chain"`
	Opening string `json:"opening,omitempty" jsonschema_description:"Text of the opening scene"`
	Error   string `json:"error,omitempty" jsonschema_description:"Failure cause when status is failed"`
}

// Engine is the slice of the generation facade the server drives.
type Engine interface {
	Generate(ctx context.Context, epochs int) (*domain.Chain, error)
	Close() error
}

// Factory builds one isolated Engine per generate_story call. Each call
// must return an engine with its own client and audit target.
type Factory func(premise *domain.Premise, runID string, hooks domain.LifecycleHooks) (Engine, error)

// DefaultFactory builds engines backed by the default inference client,
// archiving progress to the given manager. Extra options are appended
// after the server wiring so callers can tune the client.
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

// Server exposes story generation and the run archive as an MCP Server.
type Server struct {
	sessions  *session.Manager
	factory   Factory
	library   ports.PremiseLibrary
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithLibrary exposes a premise library as the premises resource and
// lets generate_story resolve premise ids.
func WithLibrary(library ports.PremiseLibrary) ServerOption {
	return func(s *Server) {
		s.library = library
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHooks attaches lifecycle hooks (e.g. metrics collectors) to every
// generated run.
func WithHooks(hooks domain.LifecycleHooks) ServerOption {
	return func(s *Server) {
		s.hooks = hooks
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, factory Factory, opts ...ServerOption) *Server {
	s := &Server{
		sessions:  sessions,
		factory:   factory,
		mcpServer: server.NewMCPServer("storychain-mcp", storychain.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	// Start the SSE server
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: generate_story
	generateTool := mcp.NewTool("generate_story",
		mcp.WithDescription("Generate a story from a premise, one scene per epoch. Blocks until the run finishes and returns its archive summary."),
		mcp.WithString("premise_id", mcp.Description("ID of a premise in the artifact library (alternative to premise_yaml)")),
		mcp.WithString("premise_yaml", mcp.Description("Inline premise document: frontmatter, YAML, or JSON (alternative to premise_id)")),
		mcp.WithNumber("epochs", mcp.Required(), mcp.Description("Number of scenes to generate")),
		mcp.WithString("run_id", mcp.Description("Archive ID for the run (generated when omitted)")),
		mcp.WithOutputSchema[RunSummary](),
	)
	s.mcpServer.AddTool(generateTool, mcp.NewStructuredToolHandler(s.handleGenerateStory))

	// TOOL: get_run
	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Get the archived record of a run, chain included."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID")),
	), s.handleGetRun)

	// TOOL: list_runs
	s.mcpServer.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List the IDs of all archived runs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: render_markdown
	s.mcpServer.AddTool(mcp.NewTool("render_markdown",
		mcp.WithDescription("Render an archived run's story as markdown."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID")),
	), s.handleRenderMarkdown)
}

// Handler methods for structured tools

func (s *Server) handleGenerateStory(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunSummary, error) {
	premise, err := s.resolvePremise(ctx, args)
	if err != nil {
		return RunSummary{}, err
	}

	epochsRaw, ok := args["epochs"].(float64)
	if !ok || epochsRaw < 1 {
		return RunSummary{}, fmt.Errorf("epochs must be a number >= 1")
	}
	epochs := int(epochsRaw)

	runID, _ := args["run_id"].(string)
	if runID == "" {
		runID = session.NewRunID()
	}

	if _, err := s.sessions.LoadOrCreate(ctx, runID, premise, epochs); err != nil {
		return RunSummary{}, fmt.Errorf("failed to reserve run %q: %w", runID, err)
	}

	engine, err := s.factory(premise, runID, s.hooks)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to build engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			s.logger.Warn("Engine close failed", "run_id", runID, "err", err)
		}
	}()

	s.logger.Info("MCP run started", "run_id", runID, "epochs", epochs)
	chain, genErr := engine.Generate(ctx, epochs)
	if genErr != nil {
		s.logger.Error("MCP run failed", "run_id", runID, "err", genErr)
	}

	return s.summarize(ctx, runID, chain, genErr), nil
}

// summarize prefers the archived record; the chain returned by Generate
// backs it up when the store is unreachable.
func (s *Server) summarize(ctx context.Context, runID string, chain *domain.Chain, genErr error) RunSummary {
	summary := RunSummary{RunID: runID, Status: string(domain.RunStatusCompleted)}

	if run, err := s.sessions.Load(ctx, runID); err == nil {
		summary.Status = string(run.Status)
		summary.Error = run.Error
		chain = run.Chain
	} else if genErr != nil {
		summary.Status = string(domain.RunStatusFailed)
		summary.Error = genErr.Error()
	}

	summary.Scenes = chain.Len()
	if root := chain.Root(); root != nil {
		summary.Opening = root.Content
	}
	return summary
}

func (s *Server) resolvePremise(ctx context.Context, args map[string]interface{}) (*domain.Premise, error) {
	premiseID, _ := args["premise_id"].(string)
	premiseYAML, _ := args["premise_yaml"].(string)

	switch {
	case premiseID != "" && premiseYAML != "":
		return nil, fmt.Errorf("premise_id and premise_yaml are mutually exclusive")
	case premiseID != "":
		if s.library == nil {
			return nil, fmt.Errorf("no premise library configured")
		}
		premise, err := s.library.Get(ctx, premiseID)
		if err != nil {
			return nil, fmt.Errorf("premise %q: %w", premiseID, err)
		}
		return premise, nil
	case premiseYAML != "":
		premise, err := compiler.NewParser().Parse([]byte(premiseYAML))
		if err != nil {
			return nil, fmt.Errorf("invalid premise: %w", err)
		}
		return premise, nil
	default:
		return nil, fmt.Errorf("premise_id or premise_yaml is required")
	}
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, ok := request.GetArguments()["run_id"].(string)
	if !ok || runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	run, err := s.sessions.Load(ctx, runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("run %q not found", runID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(run)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRenderMarkdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, ok := request.GetArguments()["run_id"].(string)
	if !ok || runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	run, err := s.sessions.Load(ctx, runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("run %q not found", runID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}

	return mcp.NewToolResultText(story.Render(run.Chain)), nil
}

func (s *Server) registerResources() {
	if s.library == nil {
		return
	}

	// EXPOSE: storychain://premises
	s.mcpServer.AddResource(mcp.NewResource("storychain://premises", "Premise Library",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.library.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list premises: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "storychain://premises",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
