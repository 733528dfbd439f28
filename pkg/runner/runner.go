package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/storychain/internal/logging"
	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/ports"
	"github.com/aretw0/storychain/pkg/prompt"
	"github.com/aretw0/storychain/pkg/response"
)

// DefaultEpochRetries is how many times an epoch re-invokes the model
// after a malformed response before the run fails.
const DefaultEpochRetries = 2

// Runner is the generation driver: the loop that grows a chain one epoch
// at a time. Each epoch builds a prompt from the premise and prior
// scenes, invokes the generator, parses the raw response, and appends
// the resulting node. The runner exclusively owns the chain for the
// duration of Run; no other writer is permitted.
//
// A Runner is single-use-at-a-time: Run must not be called concurrently
// on the same instance.
type Runner struct {
	premise   *domain.Premise
	generator ports.Generator
	builder   ports.PromptBuilder
	sink      ports.ChainSink
	store     ports.RunStore
	runID     string

	epochRetries int
	partialSave  bool

	// epochsRequested is the total node count this run is aiming for,
	// including nodes already present when resuming.
	epochsRequested int

	logger *slog.Logger
	hooks  domain.LifecycleHooks

	phase domain.Phase
}

// New creates a driver for the given premise and generator.
// The premise must already be validated; the runner treats it as
// read-only for its whole lifetime.
func New(premise *domain.Premise, generator ports.Generator, opts ...Option) *Runner {
	r := &Runner{
		premise:      premise,
		generator:    generator,
		builder:      &prompt.Builder{},
		epochRetries: DefaultEpochRetries,
		logger:       logging.NewNop(),
		phase:        domain.PhaseIdle,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Phase reports where the driver currently is in its loop. It is only
// meaningful on the goroutine driving Run, or after Run has returned.
func (r *Runner) Phase() domain.Phase {
	return r.phase
}

// Run appends epochs nodes to chain, then persists it via the sink.
//
// An empty chain starts at the root; a chain that already has nodes is
// the resume path and epoch indexing continues from its length. On
// terminal failure the returned error is a *domain.RunError carrying
// the epoch index and phase; nodes appended before the failure stay in
// the chain, and are persisted best-effort when partial saves are
// enabled. Cancellation is checked between epochs and honored inside
// the generator's retry loop through ctx.
func (r *Runner) Run(ctx context.Context, chain *domain.Chain, epochs int) error {
	if chain == nil {
		return fmt.Errorf("runner: chain is required")
	}
	if epochs < 1 {
		return fmt.Errorf("runner: epochs must be >= 1, got %d", epochs)
	}
	if r.premise == nil || r.generator == nil {
		return fmt.Errorf("runner: premise and generator are required")
	}

	start := chain.Len()
	r.epochsRequested = start + epochs
	if start > 0 {
		r.logger.Info("resuming chain", "nodes", start, "epochs", epochs)
	} else {
		r.logger.Info("starting chain", "epochs", epochs)
	}

	for epoch := start; epoch < start+epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, chain, epoch, err)
		}

		r.fireEpochStart(ctx, epoch)

		r.setPhase(ctx, domain.PhasePrompting)
		text := r.builder.Build(r.premise, chain.Window(chain.Len()), epoch)

		content, reasoning, err := r.generateScene(ctx, epoch, text)
		if err != nil {
			return r.fail(ctx, chain, epoch, err)
		}

		r.setPhase(ctx, domain.PhaseAppending)
		id := chain.Append(content, reasoning)
		r.logger.Info("scene appended", "epoch", epoch, "node_id", id)
		r.fireNodeAppended(ctx, epoch, id)
		r.fireEpochEnd(ctx, epoch, id, nil)

		r.archive(ctx, chain, domain.RunStatusRunning, nil)
	}

	r.setPhase(ctx, domain.PhasePersisting)
	if r.sink != nil {
		if err := r.sink.Write(ctx, chain); err != nil {
			return r.fail(ctx, chain, start+epochs-1, err)
		}
	}
	r.archive(ctx, chain, domain.RunStatusCompleted, nil)

	r.setPhase(ctx, domain.PhaseCompleted)
	return nil
}

// generateScene runs the invoke/parse cycle for one epoch, re-invoking
// with the same prompt while the epoch retry budget allows.
func (r *Runner) generateScene(ctx context.Context, epoch int, text string) (string, string, error) {
	for attempt := 0; ; attempt++ {
		r.setPhase(ctx, domain.PhaseInvoking)

		r.fireInferenceStart(ctx, epoch, attempt)
		begin := time.Now()
		raw, err := r.generator.Generate(ctx, text)
		r.fireInferenceEnd(ctx, epoch, attempt, time.Since(begin), err)
		if err != nil {
			// The generator has already spent its transport retry budget.
			return "", "", err
		}

		r.setPhase(ctx, domain.PhaseParsing)
		res, err := response.Parse(raw)
		if err == nil {
			if res.Form == response.FormDegraded {
				r.logger.Warn("response had no reasoning block, keeping content only", "epoch", epoch)
			}
			return res.Content, res.Reasoning, nil
		}

		if !errors.Is(err, domain.ErrMalformedResponse) || attempt >= r.epochRetries {
			return "", "", err
		}
		r.logger.Warn("malformed response, re-invoking with the same prompt",
			"epoch", epoch, "attempt", attempt+1, "budget", r.epochRetries, "err", err)
	}
}

// fail finalizes a terminal failure: best-effort partial save, archive
// update, phase transition, and the wrapped run error.
func (r *Runner) fail(ctx context.Context, chain *domain.Chain, epoch int, cause error) error {
	runErr := &domain.RunError{Epoch: epoch, Phase: r.phase, Err: cause}
	r.fireEpochEnd(ctx, epoch, "", cause)

	if r.partialSave && r.sink != nil && chain.Len() > 0 {
		// The exit path must not inherit the caller's cancellation, or an
		// interrupted run could never save what it has.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := r.sink.Write(saveCtx, chain); err != nil {
			r.logger.Error("partial save failed", "err", err)
		} else {
			r.logger.Info("partial chain saved", "nodes", chain.Len())
		}
	}

	r.archive(ctx, chain, domain.RunStatusFailed, runErr)

	r.setPhase(ctx, domain.PhaseFailed)
	r.logger.Error("run failed", "epoch", epoch, "err", cause)
	return runErr
}

// archive mirrors the run into the optional archive store. Archive
// failures are logged, never propagated: the chain in memory remains
// the source of truth and the sink write decides run success.
func (r *Runner) archive(ctx context.Context, chain *domain.Chain, status domain.RunStatus, cause error) {
	if r.store == nil || r.runID == "" {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	run, err := r.store.Load(saveCtx, r.runID)
	if err != nil {
		run = domain.NewRun(r.runID, r.premise, r.epochsRequested)
	}
	run.Premise = r.premise
	run.Chain = chain
	run.EpochsRequested = r.epochsRequested
	switch status {
	case domain.RunStatusCompleted:
		run.Complete()
	case domain.RunStatusFailed:
		run.Fail(cause)
	default:
		run.Status = domain.RunStatusRunning
		run.Touch()
	}

	if err := r.store.Save(saveCtx, run); err != nil {
		r.logger.Warn("failed to archive run", "run_id", r.runID, "err", err)
	}
}

func (r *Runner) setPhase(ctx context.Context, to domain.Phase) {
	from := r.phase
	if from == to {
		return
	}
	r.phase = to
	r.logger.Debug("phase change", "from", from, "to", to)
	if r.hooks.OnPhaseChange != nil {
		r.hooks.OnPhaseChange(ctx, &domain.PhaseEvent{
			EventBase: r.eventBase(domain.EventPhaseChange),
			From:      from,
			To:        to,
		})
	}
}

func (r *Runner) fireEpochStart(ctx context.Context, epoch int) {
	if r.hooks.OnEpochStart != nil {
		r.hooks.OnEpochStart(ctx, &domain.EpochEvent{
			EventBase: r.eventBase(domain.EventEpochStart),
			Epoch:     epoch,
		})
	}
}

func (r *Runner) fireEpochEnd(ctx context.Context, epoch int, nodeID string, err error) {
	if r.hooks.OnEpochEnd != nil {
		r.hooks.OnEpochEnd(ctx, &domain.EpochEvent{
			EventBase: r.eventBase(domain.EventEpochEnd),
			Epoch:     epoch,
			NodeID:    nodeID,
			Err:       err,
		})
	}
}

func (r *Runner) fireNodeAppended(ctx context.Context, epoch int, nodeID string) {
	if r.hooks.OnNodeAppended != nil {
		r.hooks.OnNodeAppended(ctx, &domain.EpochEvent{
			EventBase: r.eventBase(domain.EventNodeAppended),
			Epoch:     epoch,
			NodeID:    nodeID,
		})
	}
}

func (r *Runner) fireInferenceStart(ctx context.Context, epoch, attempt int) {
	if r.hooks.OnInferenceStart != nil {
		r.hooks.OnInferenceStart(ctx, &domain.InferenceEvent{
			EventBase: r.eventBase(domain.EventInferenceStart),
			Epoch:     epoch,
			Attempt:   attempt,
		})
	}
}

func (r *Runner) fireInferenceEnd(ctx context.Context, epoch, attempt int, d time.Duration, err error) {
	if r.hooks.OnInferenceEnd != nil {
		r.hooks.OnInferenceEnd(ctx, &domain.InferenceEvent{
			EventBase: r.eventBase(domain.EventInferenceEnd),
			Epoch:     epoch,
			Attempt:   attempt,
			Duration:  d,
			Err:       err,
		})
	}
}

func (r *Runner) eventBase(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now().UTC(), Type: t, RunID: r.runID}
}
