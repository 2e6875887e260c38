package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "podium",
	Short: "Task-dependency orchestrator for small worker teams",
	Long: `Podium routes requests through a scheduler/router/verifier triangle.

A submitted request is classified by complexity, expanded into a
dependency-gated task graph, and dispatched to registered workers.
Deliverables are accepted only on mechanical verification evidence;
plans above the blast-radius threshold bounce back for decomposition,
and anything the orchestrator cannot resolve on evidence escalates to
you with the verdict attached.

Core capabilities:
- Classifies requests into five complexity tiers
- Builds per-tier task graph shapes with verification baked in
- Matches tasks to the cheapest capable worker
- Runs build/test/vet hooks over every deliverable
- Keeps an owned, persistent memory of decisions and failures`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(versionCmd)
}
