// Package cmd provides the CLI commands for augment-lite.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/logging"
	"github.com/zoonderkins/augment-lite/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command. Running with no subcommand starts the
// stdio MCP server, which is how agent clients launch the binary.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "augmentlite",
		Short: "Code-focused RAG MCP server",
		Long: `augment-lite indexes source repositories, answers questions about them
with citations, and persists project memory and tasks across sessions.

It speaks MCP over stdio; run it from your agent client's MCP configuration,
or use the subcommands to index and search directly.`,
		Version: version.Short(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runServe(cmd.Context(), false)
		},
	}

	cmd.SetVersionTemplate("augmentlite version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the CLI. Startup failures exit non-zero.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging(*cobra.Command, []string) error {
	cfg := logging.DefaultConfig()
	if debugMode || os.Getenv(config.EnvDebug) == "true" {
		cfg = logging.DebugConfig()
	}
	// Stdout carries the MCP protocol; logs go to file and stderr only.
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	loggingCleanup = cleanup

	// slog default is what every package logs through.
	setDefaultLogger(logger)
	return nil
}
