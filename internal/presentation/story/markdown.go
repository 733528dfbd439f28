// Package story renders chains into human-readable documents.
package story

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/storychain/pkg/domain"
)

// Renderer converts a chain into a markdown document.
// The zero value is ready to use.
type Renderer struct {
	// Now supplies the generation timestamp. Defaults to time.Now,
	// overridable for reproducible output.
	Now func() time.Time
}

// Render walks the chain from root to tail and emits one section per
// scene, each with the model's reasoning in a collapsible block.
func (r *Renderer) Render(chain *domain.Chain) string {
	now := time.Now
	if r != nil && r.Now != nil {
		now = r.Now
	}

	var sb strings.Builder
	sb.WriteString("# Generated Story\n\n")
	sb.WriteString(fmt.Sprintf("*Generated on %s*\n\n", now().Format("2006-01-02 15:04:05")))
	sb.WriteString("---\n\n")

	scene := 1
	for node := range chain.Traverse() {
		sb.WriteString(fmt.Sprintf("## Scene %d\n\n", scene))
		sb.WriteString(node.Content)
		sb.WriteString("\n\n")

		sb.WriteString("<details>\n<summary>AI's Reasoning</summary>\n\n")
		sb.WriteString(node.Reasoning)
		sb.WriteString("\n</details>\n\n---\n\n")

		scene++
	}

	return sb.String()
}

// Render converts a chain to markdown with the default clock.
func Render(chain *domain.Chain) string {
	return (&Renderer{}).Render(chain)
}
