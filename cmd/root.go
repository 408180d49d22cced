// Package cmd defines and implements the CLI commands for the athlete-pipeline executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root command and registers its subcommands.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "athlete-pipeline",
		Short: "Builds the athlete roster from FIS profile pages.",
		Long: `athlete-pipeline fetches FIS athlete profile pages, caches the
extracted records, and merges them with the curated roster into a single
JSON document for the frontend.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")
	cmd.AddCommand(newIngestCmd(&cfgFile))

	return cmd
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the run between
// URLs.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
