package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Character describes a single cast member of the premise.
type Character struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Arc         string `json:"arc,omitempty" yaml:"arc,omitempty"`
}

// Premise is the structured seed description guiding generation.
// It is immutable once loaded: the generation driver holds it for the
// lifetime of a run and never writes to it.
type Premise struct {
	Title      string `json:"title" yaml:"title"`
	Genre      string `json:"genre,omitempty" yaml:"genre,omitempty"`
	Setting    string `json:"setting,omitempty" yaml:"setting,omitempty"`
	TimePeriod string `json:"time_period,omitempty" yaml:"time_period,omitempty"`

	// Premise holds the free-form premise text (the story seed paragraph).
	Premise string `json:"premise" yaml:"premise"`

	Characters   []Character `json:"characters,omitempty" yaml:"characters,omitempty"`
	Themes       []string    `json:"themes,omitempty" yaml:"themes,omitempty"`
	PlotElements []string    `json:"plot_elements,omitempty" yaml:"plot_elements,omitempty"`
}

// ErrInvalidPremise is wrapped by all premise validation failures.
var ErrInvalidPremise = errors.New("invalid premise")

// Validate checks the minimal requirements for generation.
// A premise needs a title and premise text; everything else is optional
// color that the prompt builder includes when present.
func (p *Premise) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: premise is nil", ErrInvalidPremise)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPremise)
	}
	if strings.TrimSpace(p.Premise) == "" {
		return fmt.Errorf("%w: premise text is required", ErrInvalidPremise)
	}
	for i, c := range p.Characters {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: characters[%d] is missing a name", ErrInvalidPremise, i)
		}
	}
	return nil
}
