package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/storychain/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <story.json>",
	Short: "Export the story chain visualization",
	Long:  `Reads a story file and outputs a Mermaid diagram (graph TD) of the scene chain, highlighting the current tail.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		chain, err := loadChainFile(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		// Generate and print Mermaid graph
		output := graph.GenerateMermaid(chain, graph.TailOverlay(chain))
		fmt.Print(output)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
