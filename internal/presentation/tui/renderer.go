package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders story markdown for the
// terminal using glamour. When the renderer cannot be initialized (for
// example when writing to a pipe) the markdown is passed through as-is,
// so redirected output stays clean.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil || r == nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
