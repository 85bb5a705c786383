// Package cli wires the npmscan commands.
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "npmscan",
		Short: "Scan npm packages for versions published in a time window",
		Long: `Npmscan reads a package list, fetches each package's version history
from the npm registry on a bounded worker pool, and reports the versions
published inside the configured window.

Progress is checkpointed periodically; an interrupted scan resumes from
its checkpoint on the next run against the same input file.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewScanCmd())

	return rootCmd
}
