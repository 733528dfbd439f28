package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	loamAdapter "github.com/aretw0/storychain/pkg/adapters/loam"
	"github.com/aretw0/storychain/pkg/domain"
)

var premiseCmd = &cobra.Command{
	Use:   "premise",
	Short: "Manage premise artifacts",
	Long:  `List, inspect, and scaffold premise documents in the artifacts library.`,
}

var premiseLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all premises in the library",
	Run: func(cmd *cobra.Command, args []string) {
		library := openLibrary(cmd, false)
		ids, err := library.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing premises: %v\n", err)
			os.Exit(1)
		}

		if len(ids) == 0 {
			fmt.Println("No premises found.")
			return
		}

		fmt.Println("Premises:")
		for _, id := range ids {
			fmt.Println("- " + id)
		}
	},
}

var premiseShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Inspect one premise",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		library := openLibrary(cmd, false)

		premise, err := library.Get(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error loading premise '%s': %v\n", args[0], err)
			os.Exit(1)
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(premise, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling premise: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(string(data))
	},
}

var premiseInitCmd = &cobra.Command{
	Use:   "init <id>",
	Short: "Scaffold a new premise artifact",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		library := openLibrary(cmd, true)

		starter := &domain.Premise{
			Title:   args[0],
			Genre:   "Science Fiction",
			Premise: "Describe the story you want the model to grow, scene by scene.",
			Characters: []domain.Character{
				{Name: "Protagonist", Description: "Who the story follows."},
			},
		}
		if err := library.Put(cmd.Context(), args[0], starter); err != nil {
			fmt.Printf("Error writing premise: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Premise '%s' created. Edit the artifact, then run 'storychain generate %s'.\n", args[0], args[0])
	},
}

func init() {
	rootCmd.AddCommand(premiseCmd)
	premiseCmd.AddCommand(premiseLsCmd)
	premiseCmd.AddCommand(premiseShowCmd)
	premiseCmd.AddCommand(premiseInitCmd)
}

func openLibrary(cmd *cobra.Command, writable bool) *loamAdapter.Library {
	dir, _ := cmd.Flags().GetString("artifacts")

	library, err := loamAdapter.Open(dir, writable)
	if err != nil {
		fmt.Printf("Error opening artifacts library: %v\n", err)
		os.Exit(1)
	}
	return library
}
