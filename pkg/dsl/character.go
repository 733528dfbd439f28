package dsl

// CharacterBuilder provides a fluent API for configuring a cast member.
type CharacterBuilder struct {
	builder *Builder
	index   int
}

// Describe sets who the character is.
func (c *CharacterBuilder) Describe(description string) *CharacterBuilder {
	c.builder.premise.Characters[c.index].Description = description
	return c
}

// Arc sets how the character should change across the story.
func (c *CharacterBuilder) Arc(arc string) *CharacterBuilder {
	c.builder.premise.Characters[c.index].Arc = arc
	return c
}

// And returns to the premise builder for further chaining.
func (c *CharacterBuilder) And() *Builder {
	return c.builder
}
