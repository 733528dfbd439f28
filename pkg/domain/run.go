package domain

import "time"

// RunStatus defines the lifecycle state of an archived run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the unit of archival: one generation run with its premise, the
// chain grown so far, and enough bookkeeping to resume or inspect it.
type Run struct {
	ID              string    `json:"id"`
	Status          RunStatus `json:"status"`
	EpochsRequested int       `json:"epochs_requested"`
	Premise         *Premise  `json:"premise"`
	Chain           *Chain    `json:"chain"`

	// Error holds the message of the failure that ended the run, empty
	// unless Status is failed.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRun creates a running record with an empty chain.
func NewRun(id string, premise *Premise, epochs int) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:              id,
		Status:          RunStatusRunning,
		EpochsRequested: epochs,
		Premise:         premise,
		Chain:           NewChain(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Complete marks the run finished.
func (r *Run) Complete() {
	r.Status = RunStatusCompleted
	r.Error = ""
	r.UpdatedAt = time.Now().UTC()
}

// Fail marks the run failed and records the cause.
func (r *Run) Fail(err error) {
	r.Status = RunStatusFailed
	if err != nil {
		r.Error = err.Error()
	}
	r.UpdatedAt = time.Now().UTC()
}

// Touch bumps UpdatedAt, used after intermediate saves.
func (r *Run) Touch() {
	r.UpdatedAt = time.Now().UTC()
}
