package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/podium-dev/podium/internal/config"
	"github.com/podium-dev/podium/internal/memory"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the request audit trail",
	Long: `Display recent requests and their terminal states.

Shows each request's tier, outcome, and the reason for any escalation
or failure, newest first.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "Maximum number of requests to show (0 for all)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := memoryPath(cfg, cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No requests recorded. Run 'podium run <request>' to start.")
		return nil
	}

	store, err := memory.Open(dbPath, memory.DefaultOwnership())
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	rows, err := store.Requests(statusLimit)
	if err != nil {
		return fmt.Errorf("list requests: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("No requests recorded. Run 'podium run <request>' to start.")
		return nil
	}

	for _, row := range rows {
		fmt.Printf("%s  %-9s %-10s %s\n",
			row.ID,
			row.Tier,
			stateLabel(row.State),
			row.Description)
		fmt.Printf("          submitted %s%s\n",
			row.SubmittedAt.Format(time.RFC3339),
			closedSuffix(row.ClosedAt))
		if row.Reason != "" {
			fmt.Printf("          reason: %s\n", row.Reason)
		}
	}
	return nil
}

func stateLabel(state string) string {
	switch state {
	case "closed", "resolved":
		return color.GreenString(state)
	case "escalated":
		return color.YellowString(state)
	default:
		return state
	}
}

func closedSuffix(closedAt *time.Time) string {
	if closedAt == nil {
		return ""
	}
	return ", closed " + closedAt.Format(time.RFC3339)
}
