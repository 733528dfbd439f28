package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/storychain/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate <premise>",
	Short: "Check a premise for completeness",
	Long:  `Parses the premise document and reports missing required fields before any tokens are spent on generation.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		artifacts, _ := cmd.Flags().GetString("artifacts")

		if _, err := cli.LoadPremise(cmd.Context(), args[0], artifacts); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Premise is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
