package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/podium-dev/podium/internal/config"
	"github.com/podium-dev/podium/pkg/models"
)

var workersFile string

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Show the worker roster",
	Long: `Display the worker roles the orchestrator would register.

Tasks route to the cheapest worker whose capability tags share at
least one of the task's domain tags; ties break by registration order.`,
	RunE: runWorkers,
}

func init() {
	workersCmd.Flags().StringVar(&workersFile, "workers", "", "Path to a worker roster YAML file")
}

func runWorkers(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	specs, err := loadWorkerSpecs(cfg, workersFile)
	if err != nil {
		return err
	}

	for _, spec := range specs {
		fmt.Printf("%s  cost=%d  %s\n",
			color.CyanString("%-12s", spec.Name),
			spec.CostTier,
			modeLabel(spec.Mode))
		fmt.Printf("              tags: %s\n", strings.Join(spec.CapabilityTags, ", "))
		if spec.Command != "" {
			fmt.Printf("              command: %s\n", spec.Command)
		} else {
			fmt.Printf("              command: (Anthropic API)\n")
		}
	}
	return nil
}

func modeLabel(mode models.ConcurrencyMode) string {
	if mode == models.ModeBackground {
		return "background"
	}
	return "foreground"
}
