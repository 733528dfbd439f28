package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/storychain/internal/presentation/story"
	"github.com/aretw0/storychain/internal/presentation/tui"
	"github.com/aretw0/storychain/pkg/domain"
)

var convertCmd = &cobra.Command{
	Use:   "convert <story.json>",
	Short: "Convert a story chain to markdown",
	Long: `Renders a persisted story chain as a readable markdown document, one
section per scene with the model's reasoning in collapsible blocks.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		preview, _ := cmd.Flags().GetBool("preview")
		output, _ := cmd.Flags().GetString("output")

		chain, err := loadChainFile(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		markdown := story.Render(chain)

		if preview {
			render := tui.NewRenderer()
			out, err := render(markdown)
			if err != nil {
				out = markdown
			}
			fmt.Print(out)
			return
		}

		if output == "" {
			output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".md"
		}
		if err := os.WriteFile(output, []byte(markdown), 0644); err != nil {
			fmt.Printf("Error writing markdown: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Markdown written to '%s'.\n", output)
	},
}

func init() {
	convertCmd.Flags().Bool("preview", false, "Render to the terminal instead of writing a file")
	convertCmd.Flags().String("output", "", "Output path (defaults to the input with a .md extension)")

	rootCmd.AddCommand(convertCmd)
}

// loadChainFile reads a persisted chain from a JSON story file.
func loadChainFile(path string) (*domain.Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}

	chain := domain.NewChain()
	if err := json.Unmarshal(data, chain); err != nil {
		return nil, fmt.Errorf("failed to parse story file: %w", err)
	}
	return chain, nil
}
