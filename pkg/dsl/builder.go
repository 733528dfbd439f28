package dsl

import (
	"github.com/aretw0/storychain/pkg/domain"
)

// Builder manages premise construction.
type Builder struct {
	premise domain.Premise
}

// NewPremise starts a premise with the given title.
func NewPremise(title string) *Builder {
	return &Builder{
		premise: domain.Premise{Title: title},
	}
}

// Genre sets the genre guiding the model's register.
func (b *Builder) Genre(genre string) *Builder {
	b.premise.Genre = genre
	return b
}

// Setting sets where the story takes place.
func (b *Builder) Setting(setting string) *Builder {
	b.premise.Setting = setting
	return b
}

// TimePeriod sets when the story takes place.
func (b *Builder) TimePeriod(period string) *Builder {
	b.premise.TimePeriod = period
	return b
}

// Text sets the premise text, the paragraph every prompt opens with.
func (b *Builder) Text(premise string) *Builder {
	b.premise.Premise = premise
	return b
}

// Themes appends themes the story should keep circling back to.
func (b *Builder) Themes(themes ...string) *Builder {
	b.premise.Themes = append(b.premise.Themes, themes...)
	return b
}

// PlotElements appends beats the story must eventually hit.
func (b *Builder) PlotElements(elements ...string) *Builder {
	b.premise.PlotElements = append(b.premise.PlotElements, elements...)
	return b
}

// Character adds a cast member and returns its builder for refinement.
func (b *Builder) Character(name string) *CharacterBuilder {
	b.premise.Characters = append(b.premise.Characters, domain.Character{Name: name})
	return &CharacterBuilder{
		builder: b,
		index:   len(b.premise.Characters) - 1,
	}
}

// Build validates the premise and returns it. The builder keeps its own
// copy, so the returned premise is safe to hold across further calls.
func (b *Builder) Build() (*domain.Premise, error) {
	p := b.premise
	p.Characters = append([]domain.Character(nil), b.premise.Characters...)
	p.Themes = append([]string(nil), b.premise.Themes...)
	p.PlotElements = append([]string(nil), b.premise.PlotElements...)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
