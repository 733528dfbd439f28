package runner

import (
	"log/slog"

	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/ports"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithBuilder replaces the prompt builder.
func WithBuilder(b ports.PromptBuilder) Option {
	return func(r *Runner) {
		if b != nil {
			r.builder = b
		}
	}
}

// WithSink configures where the finished chain is written. Without a
// sink the chain only lives in memory (and in the archive, if any).
func WithSink(sink ports.ChainSink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithStore archives the run under runID after every epoch, enabling
// inspection and resume. Both must be set for archiving to happen.
func WithStore(store ports.RunStore, runID string) Option {
	return func(r *Runner) {
		r.store = store
		r.runID = runID
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.hooks = hooks
	}
}

// WithEpochRetries sets how many times an epoch re-invokes the model
// after a malformed response. Zero disables epoch-level retries;
// negative values are ignored.
func WithEpochRetries(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.epochRetries = n
		}
	}
}

// WithPartialSave writes the appended prefix of the chain through the
// sink when a run fails, instead of discarding it.
func WithPartialSave(enabled bool) Option {
	return func(r *Runner) {
		r.partialSave = enabled
	}
}
