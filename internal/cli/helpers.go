package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aretw0/storychain/internal/logging"
	"github.com/aretw0/storychain/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout scene output).
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

// createProgressHooks narrates generation progress on stdout.
// total is the node count the run is aiming for, prior scenes included.
func createProgressHooks(total int) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEpochStart: func(_ context.Context, e *domain.EpochEvent) {
			printSystemMessage("Epoch %d/%d: generating...", e.Epoch+1, total)
		},
		OnNodeAppended: func(_ context.Context, e *domain.EpochEvent) {
			printSystemMessage("Scene '%s' appended.", e.NodeID)
		},
	}
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseChange: func(ctx context.Context, e *domain.PhaseEvent) {
			logger.Debug("Phase Change", "from", e.From, "to", e.To)
		},
		OnEpochStart: func(ctx context.Context, e *domain.EpochEvent) {
			logger.Debug("Epoch Start", "epoch", e.Epoch)
		},
		OnEpochEnd: func(ctx context.Context, e *domain.EpochEvent) {
			if e.Err != nil {
				logger.Debug("Epoch End (Error)", "epoch", e.Epoch, "err", e.Err)
			} else {
				logger.Debug("Epoch End", "epoch", e.Epoch, "node_id", e.NodeID)
			}
		},
		OnInferenceStart: func(ctx context.Context, e *domain.InferenceEvent) {
			logger.Debug("Inference Start", "epoch", e.Epoch, "attempt", e.Attempt)
		},
		OnInferenceEnd: func(ctx context.Context, e *domain.InferenceEvent) {
			if e.Err != nil {
				logger.Debug("Inference End (Error)", "epoch", e.Epoch, "attempt", e.Attempt, "err", e.Err)
			} else {
				logger.Debug("Inference End", "epoch", e.Epoch, "attempt", e.Attempt, "duration", e.Duration.Round(time.Millisecond))
			}
		},
		OnNodeAppended: func(ctx context.Context, e *domain.EpochEvent) {
			logger.Debug("Node Appended", "node_id", e.NodeID)
		},
	}
}

func isInterrupted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled)
}

func handleExecutionError(err error) error {
	if err == nil {
		return nil
	}
	if isInterrupted(err) {
		return nil // Exit 0 for interruptions
	}
	return err
}

// logCompletion reports how the run ended. sig carries the OS signal when
// the run was cut short by one.
func logCompletion(chain *domain.Chain, err error, quiet bool, sig os.Signal) {
	if quiet {
		return
	}

	if err == nil {
		printSystemMessage("Finished: %d scenes.", chain.Len())
		return
	}

	if isInterrupted(err) {
		if sig == os.Interrupt {
			// Aesthetic: Print [CTRL+C] simulation if likely from user via SIGINT
			fmt.Printf("[CTRL+C]\n")
			printSystemMessage("Interrupted after %d scenes.", chain.Len())
		} else if sig != nil {
			fmt.Printf("\n")
			printSystemMessage("Terminated after %d scenes.", chain.Len())
		} else {
			printSystemMessage("Interrupted after %d scenes.", chain.Len())
		}
		return
	}

	printSystemMessage("Failed after %d scenes: %v", chain.Len(), err)
}
