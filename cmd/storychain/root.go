package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storychain",
	Short: "Storychain grows stories scene by scene with a local model",
	Long:  `Storychain orchestrates a local Ollama model to write a linear story one scene at a time, persisting the chain as a JSON document.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("artifacts", "artifacts", "Directory containing premise artifacts")
}
