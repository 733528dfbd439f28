package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/storychain"
	"github.com/aretw0/storychain/internal/cli"
	"github.com/aretw0/storychain/internal/logging"
	loamAdapter "github.com/aretw0/storychain/pkg/adapters/loam"
	mcpAdapter "github.com/aretw0/storychain/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts storychain as an MCP Server.
This allows AI agents (like Claude Desktop) to grow and inspect stories as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		dir, _ := cmd.Flags().GetString("dir")
		redisURL, _ := cmd.Flags().GetString("redis")
		artifacts, _ := cmd.Flags().GetString("artifacts")
		endpoint, _ := cmd.Flags().GetString("endpoint")
		model, _ := cmd.Flags().GetString("model")

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		logger := logging.New(slog.LevelInfo)

		mgr, closeStore, err := cli.OpenSessions(dir, redisURL, logger)
		if err != nil {
			log.Fatalf("Error opening run store: %v", err)
		}
		defer func() {
			if err := closeStore(); err != nil {
				logger.Warn("failed to close run store", "error", err)
			}
		}()

		engineOpts := []storychain.Option{storychain.WithLogger(logger)}
		if endpoint != "" {
			engineOpts = append(engineOpts, storychain.WithEndpoint(endpoint))
		}
		if model != "" {
			engineOpts = append(engineOpts, storychain.WithModel(model))
		}

		serverOpts := []mcpAdapter.ServerOption{mcpAdapter.WithLogger(logger)}
		if library, err := loamAdapter.Open(artifacts, false); err == nil {
			serverOpts = append(serverOpts, mcpAdapter.WithLibrary(library))
		} else {
			logger.Warn("premise library unavailable, generate_story needs inline premises", "dir", artifacts, "error", err)
		}

		srv := mcpAdapter.NewServer(mgr, mcpAdapter.DefaultFactory(mgr, engineOpts...), serverOpts...)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			logger.Info("Starting Storychain MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				logger.Error("MCP Server execution failed", "error", err)
				os.Exit(1)
			}
		case "sse":
			logger.Info("Starting Storychain MCP Server (SSE)", "port", port)

			// Create a context that cancels on interrupt signal
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				// Ignore server closed error if it was caused by context cancellation
				if err != http.ErrServerClosed {
					logger.Error("MCP Server execution failed", "error", err)
					os.Exit(1)
				}
			}
			logger.Info("MCP Server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	mcpCmd.Flags().String("dir", "", "Run store directory (defaults to .storychain/runs)")
	mcpCmd.Flags().String("redis", "", "Redis URL for the run store (overrides --dir)")
	mcpCmd.Flags().String("endpoint", "", "Ollama API endpoint (defaults to the standard local endpoint)")
	mcpCmd.Flags().String("model", "", "Model to generate with")
}
