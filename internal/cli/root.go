// Package cli implements the Bloom command-line interface using Cobra.
// Subcommands operate directly on the local engine state; `bloom serve`
// starts the HTTP API daemon.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bloom",
	Short: "Bloom — the wellness engagement engine",
	Long: `Bloom turns daily wellness actions into XP, levels, streaks, badges,
and challenge progress. One binary: the CLI and the API daemon.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
