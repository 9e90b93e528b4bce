package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "penny",
	Short: "P&L analysis orchestrator",
	Long: `Penny orchestrates multi-step P&L analysis tasks against a financial
tool service, driven by a reasoning model.

A request is decomposed into subtasks, each subtask is resolved to a
tool call, hypothetical P&L calculations are cross-checked against the
complement hierarchy, and failures are retried with escalating recovery
strategies before a final answer is synthesized.

Core capabilities:
- Decomposes requests into tool-backed subtasks
- Executes formula lookups, updates, and hypothetical P&L calculations
- Validates calculations against the complement hierarchy
- Recovers from tool failures (retry, alternate tool, replan)
- Checkpoints every run so interrupted work can be resumed`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}
