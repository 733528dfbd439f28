// Package prompt assembles the text sent to the model for each epoch.
//
// Two shapes exist: an opening prompt built from the premise alone, and a
// continuation prompt that quotes a bounded window of prior scene content.
// Reasoning from prior scenes is never quoted back to the model; only the
// narrative itself carries forward.
package prompt

import (
	"fmt"
	"strings"

	"github.com/aretw0/storychain/pkg/domain"
)

// DefaultWindow is how many prior scenes a continuation prompt quotes.
const DefaultWindow = 3

const openingTemplate = `You are tasked with writing a scene in the style specified by the premise.

IMPORTANT: Format your response EXACTLY as follows:
<think>
Write your reasoning here in a single paragraph, explaining your narrative choices and how they connect to the premise.
</think>
Write your scene content here, using proper paragraphs and formatting.

Story Premise:
%s

Remember:
- Put your reasoning in a SINGLE paragraph inside <think> tags
- Write your scene content immediately after the </think> tag
- Use proper paragraphs in your scene content
- Do NOT add any extra formatting or tags`

const continuationHeader = `Story Premise:
%s

You are continuing a story. Here are the most recent scenes in order:

`

const previousScene = "Previous Scene:\n%s\n\n"

const continuationFooter = `Now continue the story, maintaining consistency with the previous scenes and the overall premise.

IMPORTANT: Format your response EXACTLY as follows:
<think>
Your reasoning about how this scene continues the story and develops the narrative.
</think>
Write your scene content here, making sure it flows naturally from the previous scene...`

// Builder assembles prompts from a premise and prior scenes.
// The zero value is usable and quotes DefaultWindow prior scenes.
type Builder struct {
	// Window bounds how many prior scenes a continuation prompt quotes.
	// Values below 1 fall back to DefaultWindow. Older scenes beyond the
	// window are omitted, not summarized.
	Window int
}

// Build returns the prompt for the given epoch. With no prior scenes the
// opening prompt is returned; otherwise the last Window scenes' content is
// quoted in chain order followed by the continuation instructions.
func (b *Builder) Build(premise *domain.Premise, prior []*domain.Node, epoch int) string {
	summary := Summarize(premise)

	if len(prior) == 0 {
		return fmt.Sprintf(openingTemplate, summary)
	}

	window := DefaultWindow
	if b != nil && b.Window > 0 {
		window = b.Window
	}
	if len(prior) > window {
		prior = prior[len(prior)-window:]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, continuationHeader, summary)
	for _, n := range prior {
		fmt.Fprintf(&sb, previousScene, n.Content)
	}
	sb.WriteString(continuationFooter)
	return sb.String()
}

// Summarize renders a premise as the plain-text block quoted in prompts.
// Empty fields are skipped so a minimal premise stays compact.
func Summarize(p *domain.Premise) string {
	if p == nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", p.Title)
	if p.Genre != "" {
		fmt.Fprintf(&sb, "Genre: %s\n", p.Genre)
	}
	if p.Setting != "" {
		fmt.Fprintf(&sb, "Setting: %s\n", p.Setting)
	}
	if p.TimePeriod != "" {
		fmt.Fprintf(&sb, "Time Period: %s\n", p.TimePeriod)
	}
	fmt.Fprintf(&sb, "\n%s\n", strings.TrimSpace(p.Premise))

	if len(p.Characters) > 0 {
		sb.WriteString("\nCharacters:\n")
		for _, c := range p.Characters {
			sb.WriteString("- " + c.Name)
			if c.Description != "" {
				sb.WriteString(": " + c.Description)
			}
			if c.Arc != "" {
				fmt.Fprintf(&sb, " (arc: %s)", c.Arc)
			}
			sb.WriteString("\n")
		}
	}

	if len(p.Themes) > 0 {
		fmt.Fprintf(&sb, "\nThemes: %s\n", strings.Join(p.Themes, ", "))
	}

	if len(p.PlotElements) > 0 {
		sb.WriteString("\nPlot Elements:\n")
		for _, el := range p.PlotElements {
			sb.WriteString("- " + el + "\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
