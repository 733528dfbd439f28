package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/storychain/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// excerptLen caps how much scene text appears inside a node label.
const excerptLen = 40

// GenerateMermaid produces a Mermaid flowchart syntax string from a chain.
// It applies semantic styling:
// - Root scene: ((Circle))
// - Later scenes: [Rectangle]
// Successor links become arrows, and overlay styles (Visited/Current)
// are applied if provided.
func GenerateMermaid(chain *domain.Chain, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for node := range chain.Traverse() {
		// Sanitize ID for Mermaid
		safeID := sanitizeMermaidID(node.ID)

		// Node Shape: the root is a circle, every later scene a rectangle
		opener, closer := "[", "]"
		if node.IsRoot() {
			opener, closer = "((", "))"
		}

		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, nodeLabel(node), closer))

		if node.Successor != nil {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(*node.Successor)))
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		// Deduplicate visited nodes (using safeIDs)
		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" {
			safeCurrent := sanitizeMermaidID(overlay.CurrentNode)
			sb.WriteString(fmt.Sprintf("    class %s current;\n", safeCurrent))
		}
	}

	return sb.String()
}

// TailOverlay highlights the chain's tail as the current node, the rest
// as visited. Convenient for the common "where is the story now" view.
func TailOverlay(chain *domain.Chain) *GraphOverlay {
	overlay := &GraphOverlay{}
	for node := range chain.Traverse() {
		if node.IsTail() {
			overlay.CurrentNode = node.ID
		} else {
			overlay.VisitedNodes = append(overlay.VisitedNodes, node.ID)
		}
	}
	return overlay
}

// nodeLabel renders the text inside a node: the id plus a short excerpt
// of the scene, kept on one line and quote-safe for Mermaid.
func nodeLabel(node *domain.Node) string {
	excerpt := strings.Join(strings.Fields(node.Content), " ")
	if runes := []rune(excerpt); len(runes) > excerptLen {
		excerpt = string(runes[:excerptLen]) + "..."
	}
	excerpt = strings.ReplaceAll(excerpt, "\"", "'")
	if excerpt == "" {
		return node.ID
	}
	return fmt.Sprintf("%s <br/> %s", node.ID, excerpt)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
