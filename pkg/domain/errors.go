package domain

import (
	"errors"
	"fmt"
)

// ErrInferenceUnavailable is returned when the inference server cannot be
// reached or keeps failing transiently after the retry budget is spent.
var ErrInferenceUnavailable = errors.New("inference server unavailable")

// ErrInferenceRejected is returned when the inference server answers with a
// non-retryable client error, such as an unknown model.
var ErrInferenceRejected = errors.New("inference request rejected")

// ErrMalformedResponse is returned when a model response yields no usable
// scene content after parsing.
var ErrMalformedResponse = errors.New("malformed model response")

// ErrPersistenceFailure is returned when a chain or run cannot be written
// to its destination.
var ErrPersistenceFailure = errors.New("persistence failure")

// ErrRunNotFound is returned when a run ID cannot be found in the archive.
var ErrRunNotFound = errors.New("run not found")

// RunError reports where a generation run stopped. Epoch is the zero-based
// index of the failing epoch and Phase the state the driver was in.
type RunError struct {
	Epoch int
	Phase Phase
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("epoch %d (%s): %v", e.Epoch, e.Phase, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
