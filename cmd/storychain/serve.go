package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/storychain"
	"github.com/aretw0/storychain/internal/cli"
	"github.com/aretw0/storychain/internal/logging"
	httpAdapter "github.com/aretw0/storychain/pkg/adapters/http"
	"github.com/aretw0/storychain/pkg/observability"
	"github.com/aretw0/storychain/pkg/persistence/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Starts storychain in server mode, exposing run management and story generation as a JSON API over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		dir, _ := cmd.Flags().GetString("dir")
		redisURL, _ := cmd.Flags().GetString("redis")
		redact, _ := cmd.Flags().GetBool("redact-reasoning")
		endpoint, _ := cmd.Flags().GetString("endpoint")
		model, _ := cmd.Flags().GetString("model")

		logger := logging.New(slog.LevelInfo)

		var mws []middleware.Middleware
		if redact {
			mws = append(mws, middleware.NewReasoningRedactor())
		}

		mgr, closeStore, err := cli.OpenSessions(dir, redisURL, logger, mws...)
		if err != nil {
			fmt.Printf("Error opening run store: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			if err := closeStore(); err != nil {
				logger.Warn("failed to close run store", "error", err)
			}
		}()

		// Cancelling this context aborts in-flight runs, which archive
		// their partial chains before the process exits.
		baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engineOpts := []storychain.Option{storychain.WithLogger(logger)}
		if endpoint != "" {
			engineOpts = append(engineOpts, storychain.WithEndpoint(endpoint))
		}
		if model != "" {
			engineOpts = append(engineOpts, storychain.WithModel(model))
		}

		metrics := observability.NewMetrics()
		server := httpAdapter.NewServer(mgr, httpAdapter.DefaultFactory(mgr, engineOpts...),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithHooks(metrics.Hooks()),
			httpAdapter.WithMetricsHandler(metrics.Handler()),
			httpAdapter.WithBaseContext(baseCtx),
		)

		srv := &http.Server{
			Addr:    addr,
			Handler: server.Handler(),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Storychain Server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case <-baseCtx.Done():
			fmt.Println("\nStart shutdown...")

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Storychain Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().String("dir", "", "Run store directory (defaults to .storychain/runs)")
	serveCmd.Flags().String("redis", "", "Redis URL for the run store (overrides --dir)")
	serveCmd.Flags().Bool("redact-reasoning", false, "Blank model reasoning before archiving runs")
	serveCmd.Flags().String("endpoint", "", "Ollama API endpoint (defaults to the standard local endpoint)")
	serveCmd.Flags().String("model", "", "Model to generate with")
}
