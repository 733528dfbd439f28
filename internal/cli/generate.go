package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/storychain"
	"github.com/aretw0/storychain/internal/presentation/tui"
	"github.com/aretw0/storychain/pkg/domain"
	"github.com/aretw0/storychain/pkg/session"
)

// GenerateOptions contains all the configuration for the generate command.
type GenerateOptions struct {
	PremiseRef   string
	ArtifactsDir string
	Epochs       int
	Output       string
	Endpoint     string
	Model        string
	Window       int
	Retries      int
	Timeout      time.Duration
	AuditPath    string
	SavePartial  bool
	RunID        string
	Resume       bool
	StoreDir     string
	RedisURL     string
	Debug        bool
	Quiet        bool
}

// Generate executes the generate command: grow a chain from the premise
// and persist it to the output file.
func Generate(opts GenerateOptions) error {
	logger := createLogger(opts.Debug)

	if !opts.Quiet {
		tui.PrintBanner(storychain.Version)
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	premise, err := LoadPremise(sigCtx, opts.PremiseRef, opts.ArtifactsDir)
	if err != nil {
		return fmt.Errorf("error loading premise: %w", err)
	}

	engineOpts := []storychain.Option{
		storychain.WithLogger(logger),
		storychain.WithOutput(opts.Output),
		storychain.WithWindow(opts.Window),
		storychain.WithEpochRetries(opts.Retries),
		storychain.WithPartialSave(opts.SavePartial),
	}
	if opts.Endpoint != "" {
		engineOpts = append(engineOpts, storychain.WithEndpoint(opts.Endpoint))
	}
	if opts.Model != "" {
		engineOpts = append(engineOpts, storychain.WithModel(opts.Model))
	}
	if opts.Timeout > 0 {
		engineOpts = append(engineOpts, storychain.WithTimeout(opts.Timeout))
	}
	if opts.AuditPath != "" {
		engineOpts = append(engineOpts, storychain.WithAuditLog(opts.AuditPath))
	}

	// Archive wiring: any of --run-id, --resume, --redis opts the run
	// into the store.
	runID := opts.RunID
	var mgr *session.Manager
	if runID != "" || opts.Resume || opts.RedisURL != "" {
		if runID == "" {
			runID = session.NewRunID()
		}
		var closeStore func() error
		mgr, closeStore, err = OpenSessions(opts.StoreDir, opts.RedisURL, logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := closeStore(); cerr != nil {
				logger.Warn("Failed to close run store", "err", cerr)
			}
		}()
		engineOpts = append(engineOpts, storychain.WithStore(mgr, runID))
	}

	// Resume: pick the chain up where the archived run left it.
	var chain *domain.Chain
	existing := 0
	if opts.Resume {
		if opts.RunID == "" {
			return fmt.Errorf("--resume requires --run-id")
		}
		run, err := mgr.Load(sigCtx, runID)
		if err != nil {
			return fmt.Errorf("cannot resume run %q: %w", runID, err)
		}
		chain = run.Chain
		existing = chain.Len()
		if !opts.Quiet {
			printSystemMessage("Resuming run '%s' at %d scenes.", runID, existing)
		}
	}

	hookSets := []domain.LifecycleHooks{}
	if opts.Debug {
		hookSets = append(hookSets, createDebugHooks(logger))
	}
	if !opts.Quiet {
		hookSets = append(hookSets, createProgressHooks(existing+opts.Epochs))
	}
	if len(hookSets) > 0 {
		engineOpts = append(engineOpts, storychain.WithLifecycleHooks(domain.MergeHooks(hookSets...)))
	}

	eng, err := storychain.New(premise, engineOpts...)
	if err != nil {
		return fmt.Errorf("error initializing storychain: %w", err)
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			logger.Warn("Failed to close engine", "err", cerr)
		}
	}()

	if !opts.Quiet {
		if opts.Resume {
			printSystemMessage("Extending '%s' by %d scenes...", premise.Title, opts.Epochs)
		} else {
			printSystemMessage("Generating %d scenes of '%s'...", opts.Epochs, premise.Title)
		}
	}

	var runErr error
	if opts.Resume {
		runErr = eng.Extend(sigCtx, chain, opts.Epochs)
	} else {
		chain, runErr = eng.Generate(sigCtx, opts.Epochs)
	}

	// If the context was cancelled (signal received), surface it even
	// when the driver returned first.
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}

	logCompletion(chain, runErr, opts.Quiet, sigCtx.Signal())

	if runErr == nil && !opts.Quiet {
		printSystemMessage("Story written to '%s'.", opts.Output)
	}

	return handleExecutionError(runErr)
}
