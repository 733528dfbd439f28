package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/storychain/internal/cli"
	"github.com/aretw0/storychain/pkg/inference"
	"github.com/aretw0/storychain/pkg/prompt"
	"github.com/aretw0/storychain/pkg/runner"
)

var generateCmd = &cobra.Command{
	Use:   "generate <premise>",
	Short: "Generate a story from a premise",
	Long: `Grows a story one scene per epoch from the given premise, which is
either an artifact id in the premise library or a path to a premise file.
The finished chain is written to the output file as JSON.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		artifacts, _ := cmd.Flags().GetString("artifacts")
		epochs, _ := cmd.Flags().GetInt("epochs")
		output, _ := cmd.Flags().GetString("output")
		endpoint, _ := cmd.Flags().GetString("endpoint")
		model, _ := cmd.Flags().GetString("model")
		window, _ := cmd.Flags().GetInt("window")
		retries, _ := cmd.Flags().GetInt("retries")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		auditLog, _ := cmd.Flags().GetString("audit-log")
		savePartial, _ := cmd.Flags().GetBool("save-partial")
		runID, _ := cmd.Flags().GetString("run-id")
		resume, _ := cmd.Flags().GetBool("resume")
		storeDir, _ := cmd.Flags().GetString("dir")
		redisURL, _ := cmd.Flags().GetString("redis")
		debug, _ := cmd.Flags().GetBool("debug")
		quiet, _ := cmd.Flags().GetBool("quiet")

		err := cli.Generate(cli.GenerateOptions{
			PremiseRef:   args[0],
			ArtifactsDir: artifacts,
			Epochs:       epochs,
			Output:       output,
			Endpoint:     endpoint,
			Model:        model,
			Window:       window,
			Retries:      retries,
			Timeout:      timeout,
			AuditPath:    auditLog,
			SavePartial:  savePartial,
			RunID:        runID,
			Resume:       resume,
			StoreDir:     storeDir,
			RedisURL:     redisURL,
			Debug:        debug,
			Quiet:        quiet,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	generateCmd.Flags().Int("epochs", 5, "Number of scenes to generate")
	generateCmd.Flags().String("output", "story.json", "Output file for the story chain")
	generateCmd.Flags().String("endpoint", inference.DefaultEndpoint, "Ollama API endpoint")
	generateCmd.Flags().String("model", inference.DefaultModel, "Model to generate with")
	generateCmd.Flags().Int("window", prompt.DefaultWindow, "Recent scenes included in each prompt")
	generateCmd.Flags().Int("retries", runner.DefaultEpochRetries, "Retries per epoch before the run fails")
	generateCmd.Flags().Duration("timeout", inference.DefaultTimeout, "Timeout per inference call")
	generateCmd.Flags().String("audit-log", "ai_responses.log", "Append raw model responses to this file (empty disables auditing)")
	generateCmd.Flags().Bool("save-partial", false, "Keep the partial story when a run fails")
	generateCmd.Flags().String("run-id", "", "Archive the run in the run store under this id")
	generateCmd.Flags().Bool("resume", false, "Continue an archived run (requires --run-id)")
	generateCmd.Flags().String("dir", "", "Run store directory (defaults to .storychain/runs)")
	generateCmd.Flags().String("redis", "", "Redis URL for the run store (overrides --dir)")
	generateCmd.Flags().Bool("debug", false, "Log every lifecycle event")
	generateCmd.Flags().Bool("quiet", false, "Suppress banner and progress output")

	rootCmd.AddCommand(generateCmd)
}
