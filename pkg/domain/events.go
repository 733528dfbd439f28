package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPhaseChange    EventType = "phase_change"
	EventEpochStart     EventType = "epoch_start"
	EventEpochEnd       EventType = "epoch_end"
	EventInferenceStart EventType = "inference_start"
	EventInferenceEnd   EventType = "inference_end"
	EventNodeAppended   EventType = "node_appended"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
}

// PhaseEvent records a driver state transition.
type PhaseEvent struct {
	EventBase
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// EpochEvent marks the start or end of one generation epoch.
// Err is set on epoch_end when the epoch failed.
type EpochEvent struct {
	EventBase
	Epoch  int    `json:"epoch"`
	NodeID string `json:"node_id,omitempty"`
	Err    error  `json:"-"`
}

// InferenceEvent wraps one request to the model, attempts included.
type InferenceEvent struct {
	EventBase
	Epoch    int           `json:"epoch"`
	Attempt  int           `json:"attempt"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for driver observability.
// Nil callbacks are skipped; hooks run synchronously on the driver
// goroutine and must return quickly.
type LifecycleHooks struct {
	OnPhaseChange    func(context.Context, *PhaseEvent)
	OnEpochStart     func(context.Context, *EpochEvent)
	OnEpochEnd       func(context.Context, *EpochEvent)
	OnInferenceStart func(context.Context, *InferenceEvent)
	OnInferenceEnd   func(context.Context, *InferenceEvent)
	OnNodeAppended   func(context.Context, *EpochEvent)
}

// MergeHooks fans every event out to all the given hook sets, in order.
// Nil callbacks are skipped, so partial hook sets compose freely.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPhaseChange: func(ctx context.Context, e *PhaseEvent) {
			for _, h := range hooks {
				if h.OnPhaseChange != nil {
					h.OnPhaseChange(ctx, e)
				}
			}
		},
		OnEpochStart: func(ctx context.Context, e *EpochEvent) {
			for _, h := range hooks {
				if h.OnEpochStart != nil {
					h.OnEpochStart(ctx, e)
				}
			}
		},
		OnEpochEnd: func(ctx context.Context, e *EpochEvent) {
			for _, h := range hooks {
				if h.OnEpochEnd != nil {
					h.OnEpochEnd(ctx, e)
				}
			}
		},
		OnInferenceStart: func(ctx context.Context, e *InferenceEvent) {
			for _, h := range hooks {
				if h.OnInferenceStart != nil {
					h.OnInferenceStart(ctx, e)
				}
			}
		},
		OnInferenceEnd: func(ctx context.Context, e *InferenceEvent) {
			for _, h := range hooks {
				if h.OnInferenceEnd != nil {
					h.OnInferenceEnd(ctx, e)
				}
			}
		},
		OnNodeAppended: func(ctx context.Context, e *EpochEvent) {
			for _, h := range hooks {
				if h.OnNodeAppended != nil {
					h.OnNodeAppended(ctx, e)
				}
			}
		},
	}
}
