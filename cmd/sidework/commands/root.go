// Package commands implements the sidework CLI commands using cobra.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "sidework",
	Short: "Run shell commands as observable background tasks",
	Long: `Sidework runs a command on a background worker and streams its
output back in order: log lines, progress for multi-step pipelines, and
exactly one final outcome per invocation.

Interactive terminals get a live loader dialog; pipes and scripts get
plain lines. Finished invocations land in a local history database.`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./sidework.yaml, then the global config)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("plain", false, "Print plain lines instead of the loader dialog")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}
