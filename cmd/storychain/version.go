package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/storychain"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of storychain",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("storychain version %s\n", strings.TrimSpace(storychain.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
