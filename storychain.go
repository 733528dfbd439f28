package storychain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/storychain/internal/adapters/file"
	"github.com/aretw0/storychain/internal/logging"
	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/inference"
	"github.com/aretw0/storychain/pkg/ports"
	"github.com/aretw0/storychain/pkg/prompt"
	"github.com/aretw0/storychain/pkg/runner"
)

// Version is the library version, reported by the CLI and the servers
// built on top of it.
const Version = "0.3.0"

// Engine is the high-level entry point for the storychain library.
// It wraps the generation driver and provides a simplified API for
// consumers: one premise in, a growing chain of scenes out.
type Engine struct {
	premise   *domain.Premise
	generator ports.Generator
	sink      ports.ChainSink
	store     ports.RunStore
	runID     string
	audit     ports.AuditLog
	ownsAudit bool
	hooks     domain.LifecycleHooks
	logger    *slog.Logger

	window       int
	epochRetries int
	partialSave  bool
	auditPath    string

	inferenceOpts []inference.Option
	Name          string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithGenerator injects a custom text generator, bypassing the default
// inference client. Endpoint, model, timeout and audit options only
// apply to the default client and are ignored when a generator is set.
func WithGenerator(g ports.Generator) Option {
	return func(e *Engine) {
		e.generator = g
	}
}

// WithEndpoint sets the inference server base URL for the default client.
func WithEndpoint(endpoint string) Option {
	return func(e *Engine) {
		e.inferenceOpts = append(e.inferenceOpts, inference.WithEndpoint(endpoint))
	}
}

// WithModel sets the model identifier for the default client.
func WithModel(model string) Option {
	return func(e *Engine) {
		e.inferenceOpts = append(e.inferenceOpts, inference.WithModel(model))
	}
}

// WithTimeout bounds each inference attempt made by the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.inferenceOpts = append(e.inferenceOpts, inference.WithTimeout(timeout))
	}
}

// WithInferenceOptions forwards extra options to the default client,
// for knobs the facade does not surface directly.
func WithInferenceOptions(opts ...inference.Option) Option {
	return func(e *Engine) {
		e.inferenceOpts = append(e.inferenceOpts, opts...)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithWindow sets how many prior scenes each continuation prompt quotes.
func WithWindow(n int) Option {
	return func(e *Engine) {
		e.window = n
	}
}

// WithEpochRetries sets how many times an epoch re-invokes the model
// after a malformed response.
func WithEpochRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.epochRetries = n
		}
	}
}

// WithAuditLog records every prompt/response exchange to the file at
// path. The engine owns the handle; Close releases it.
func WithAuditLog(path string) Option {
	return func(e *Engine) {
		e.auditPath = path
	}
}

// WithAudit injects a custom audit destination instead of a file.
func WithAudit(audit ports.AuditLog) Option {
	return func(e *Engine) {
		e.audit = audit
	}
}

// WithSink configures where finished chains are written.
func WithSink(sink ports.ChainSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithOutput writes finished chains to a JSON file at path. Shorthand
// for WithSink with the default file sink.
func WithOutput(path string) Option {
	return func(e *Engine) {
		e.sink = file.NewSink(path)
	}
}

// WithStore archives run progress under runID, enabling inspection and
// resume across processes.
func WithStore(store ports.RunStore, runID string) Option {
	return func(e *Engine) {
		e.store = store
		e.runID = runID
	}
}

// WithPartialSave keeps the scenes generated before a failure by
// writing them through the sink on the way out.
func WithPartialSave(enabled bool) Option {
	return func(e *Engine) {
		e.partialSave = enabled
	}
}

// New initializes a storychain Engine for the given premise.
// By default it talks to a local Ollama server; use WithGenerator to
// inject any other text source.
func New(premise *domain.Premise, opts ...Option) (*Engine, error) {
	if err := premise.Validate(); err != nil {
		return nil, err
	}

	eng := &Engine{
		premise:      premise,
		epochRetries: runner.DefaultEpochRetries,
	}

	// Apply options first to check whether a generator is provided.
	for _, opt := range opts {
		opt(eng)
	}

	eng.Name = premise.Title

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	eng.logger = eng.logger.With("story", eng.Name)

	// The audit log follows the generator: a custom generator audits
	// itself, so a file handle is only opened for the default client.
	if eng.generator == nil && eng.audit == nil && eng.auditPath != "" {
		audit, err := file.NewAuditLog(eng.auditPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		eng.audit = audit
		eng.ownsAudit = true
	}

	// If no generator was injected, initialize the default client.
	if eng.generator == nil {
		clientOpts := []inference.Option{
			inference.WithLogger(eng.logger),
		}
		if eng.audit != nil {
			clientOpts = append(clientOpts, inference.WithAuditLog(eng.audit))
		}
		clientOpts = append(clientOpts, eng.inferenceOpts...)
		eng.generator = inference.New(clientOpts...)
	}

	return eng, nil
}

// Generate grows a fresh chain by the given number of epochs and
// persists it through the configured sink.
//
// The chain is returned even when the run fails: scenes appended before
// the failure stay reachable, and the error is a *domain.RunError
// pinpointing the epoch and phase that stopped the run.
func (e *Engine) Generate(ctx context.Context, epochs int) (*domain.Chain, error) {
	chain := domain.NewChain()
	if err := e.Extend(ctx, chain, epochs); err != nil {
		return chain, err
	}
	return chain, nil
}

// Extend resumes an existing chain, appending epochs more scenes.
// Node numbering and prompt context continue from the chain's tail.
func (e *Engine) Extend(ctx context.Context, chain *domain.Chain, epochs int) error {
	opts := []runner.Option{
		runner.WithBuilder(&prompt.Builder{Window: e.window}),
		runner.WithLogger(e.logger),
		runner.WithLifecycleHooks(e.hooks),
		runner.WithEpochRetries(e.epochRetries),
		runner.WithPartialSave(e.partialSave),
	}
	if e.sink != nil {
		opts = append(opts, runner.WithSink(e.sink))
	}
	if e.store != nil {
		opts = append(opts, runner.WithStore(e.store, e.runID))
	}

	r := runner.New(e.premise, e.generator, opts...)
	return r.Run(ctx, chain, epochs)
}

// Premise returns the premise this engine generates from.
func (e *Engine) Premise() *domain.Premise {
	return e.premise
}

// Generator returns the underlying text generator used by the engine.
func (e *Engine) Generator() ports.Generator {
	return e.generator
}

// Close releases resources the engine opened, currently the audit log
// handle. Engines built without WithAuditLog have nothing to close.
func (e *Engine) Close() error {
	if e.ownsAudit && e.audit != nil {
		e.ownsAudit = false
		return e.audit.Close()
	}
	return nil
}
