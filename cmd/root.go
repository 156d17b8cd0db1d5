// Package cmd contains the derbychat command line interface.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "derbychat",
	Short: "Greek football derby RAG chatbot",
	Long: `derbychat answers questions about the Olympiacos-Panathinaikos derby
over a JSON HTTP API, backed by a pgvector knowledge store that is
refreshed from sports news pages.

Running derbychat without a subcommand starts the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
}

// Execute runs the root command under the given context, which main wires
// to SIGINT/SIGTERM for graceful shutdown.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// initLogger builds the process logger.
//
// Level is controlled by the DEBUG environment variable; DERBY_LOG_JSON
// switches to JSON output for log collectors. Logs go to stderr.
func initLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("DERBY_LOG_JSON") != "" {
		cfg.JSON = true
	}
	return log.New(cfg)
}
