package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/storychain/internal/cli"
	"github.com/aretw0/storychain/internal/logging"
	"github.com/aretw0/storychain/pkg/session"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage archived runs",
	Long:  `List, inspect, and remove story runs archived in the run store.`,
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all archived runs",
	Run: func(cmd *cobra.Command, args []string) {
		mgr, closeStore := getRunStore(cmd)
		defer closeStore()

		runs, err := mgr.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing runs: %v\n", err)
			os.Exit(1)
		}

		if len(runs) == 0 {
			fmt.Println("No archived runs found.")
			return
		}

		fmt.Println("Archived Runs:")
		for _, r := range runs {
			fmt.Println("- " + r)
		}
	},
}

var runsInspectCmd = &cobra.Command{
	Use:   "inspect <run-id>",
	Short: "Inspect the state of a run",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runID := args[0]
		mgr, closeStore := getRunStore(cmd)
		defer closeStore()

		run, err := mgr.Load(cmd.Context(), runID)
		if err != nil {
			fmt.Printf("Error loading run '%s': %v\n", runID, err)
			os.Exit(1)
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling run: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(string(data))
	},
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Remove one or more runs",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mgr, closeStore := getRunStore(cmd)
		defer closeStore()
		hasError := false

		for _, runID := range args {
			if err := mgr.Delete(cmd.Context(), runID); err != nil {
				fmt.Printf("Error removing '%s': %v\n", runID, err)
				hasError = true
			} else {
				fmt.Printf("Removed run '%s'\n", runID)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

// TODO: Add support for --all flag in rm command

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsLsCmd)
	runsCmd.AddCommand(runsInspectCmd)
	runsCmd.AddCommand(runsRmCmd)

	runsCmd.PersistentFlags().String("dir", "", "Run store directory (defaults to .storychain/runs)")
	runsCmd.PersistentFlags().String("redis", "", "Redis URL for the run store (overrides --dir)")
}

func getRunStore(cmd *cobra.Command) (*session.Manager, func() error) {
	dir, _ := cmd.Flags().GetString("dir")
	redisURL, _ := cmd.Flags().GetString("redis")

	mgr, closeStore, err := cli.OpenSessions(dir, redisURL, logging.NewNop())
	if err != nil {
		fmt.Printf("Error opening run store: %v\n", err)
		os.Exit(1)
	}
	return mgr, closeStore
}
