package domain

// Phase identifies where the generation driver is in its loop.
type Phase string

const (
	// PhaseIdle is the state before Run is called and between epochs.
	PhaseIdle Phase = "idle"
	// PhasePrompting builds the next prompt from premise and prior scenes.
	PhasePrompting Phase = "prompting"
	// PhaseInvoking has a single inference request in flight.
	PhaseInvoking Phase = "invoking"
	// PhaseParsing splits the raw response into reasoning and content.
	PhaseParsing Phase = "parsing"
	// PhaseAppending links the parsed scene onto the chain.
	PhaseAppending Phase = "appending"
	// PhasePersisting writes the finished chain to its destination.
	PhasePersisting Phase = "persisting"
	// PhaseCompleted is the terminal state of a successful run.
	PhaseCompleted Phase = "completed"
	// PhaseFailed is the terminal state after an unrecoverable error.
	PhaseFailed Phase = "failed"
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	return string(p)
}

// Terminal reports whether the phase ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}
