// Package main provides the topstats CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// module defs - Version and BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "topstats"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: "Aggregate Elite Insights logs into squad top stats",
		Long: `topstats folds a directory of Elite Insights JSON exports into
per-player aggregates, derived damage metrics and high-score tables.

Commands:
  run       Process a log directory
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (built: %s)\n", AppName, Version, BuildDate)
		},
	}
}
