package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/podium-dev/podium/internal/config"
	"github.com/podium-dev/podium/internal/memory"
)

var memoryCmd = &cobra.Command{
	Use:   "memory [namespace]",
	Short: "Inspect the memory store",
	Long: `Display memory store namespaces and their contents.

With no argument, lists every namespace with its owner and last update
time. With a namespace argument, prints that document's content.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMemory,
}

func runMemory(cmd *cobra.Command, args []string) error {
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
		fmt.Println("No memory store yet. Run 'podium run <request>' to create one.")
		return nil
	}

	store, err := memory.Open(dbPath, memory.DefaultOwnership())
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	if len(args) == 1 {
		doc, err := store.Read(args[0])
		if err != nil {
			return err
		}
		fmt.Print(doc.Content)
		if doc.Content != "" && doc.Content[len(doc.Content)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}

	docs, err := store.Namespaces()
	if err != nil {
		return fmt.Errorf("list namespaces: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("Memory store is empty.")
		return nil
	}
	for _, doc := range docs {
		fmt.Printf("%s  owner=%s  updated %s\n",
			color.CyanString("%-20s", doc.Namespace),
			doc.Owner,
			doc.LastUpdated.Format("2006-01-02 15:04"))
	}
	return nil
}
