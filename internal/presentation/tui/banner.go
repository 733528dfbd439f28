package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs an ASCII art banner for Storychain.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Indigo/Rose)
	lines := []struct {
		text  string
		color string
	}{
		{" _____ _                        _           _", "#818cf8"},
		{"/  ___| |                      | |         (_)", "#a78bfa"},
		{"\\ `--.| |_ ___  _ __ _   _  ___| |__   __ _ _ _ __", "#c084fc"},
		{" `--. \\ __/ _ \\| '__| | | |/ __| '_ \\ / _` | | '_ \\", "#e879f9"},
		{"/\\__/ / || (_) | |  | |_| | (__| | | | (_| | | | | |", "#f472b6"},
		{"\\____/ \\__\\___/|_|   \\__, |\\___|_| |_|\\__,_|_|_| |_|", "#fb7185"},
		{"                      __/ |", "#fb7185"},
		{"                     |___/", "#fb7185"},
	}

	fmt.Println()
	for _, line := range lines {
		fmt.Println(termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	if version != "" {
		fmt.Println(termenv.String("  v" + version).Faint())
	}
	fmt.Println()
}
