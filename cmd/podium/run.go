package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/podium-dev/podium/internal/orchestrator"
	"github.com/podium-dev/podium/internal/tui"
	"github.com/podium-dev/podium/pkg/models"
)

var (
	runFiles      int
	runConfidence float64
	runOverride   bool
	runTags       []string
	runHeadless    bool
	runWorkersFile string
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Submit a request and drive it to a terminal state",
	Long: `Submit a request to the orchestrator and watch it execute.

The request is classified into a complexity tier, expanded into a
dependency-gated task graph, and dispatched to the registered workers.
Every deliverable passes through the hook runner; failing verdicts
trigger at most the configured number of retries before the request
escalates with the evidence attached.

Classification hints:
  --files       estimated number of files touched
  --confidence  requirement confidence from 0 to 1 (below 0.5 routes
                to the ambiguous tier and a scouting graph)
  --override    the request contradicts a previously recorded decision
                (forces the critical tier and adversarial review)
  --tags        domain tags used for worker matching

Touch .podium/signals/abort to abort every in-flight request, or
.podium/signals/abort-<id> for one request.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRequest,
}

func init() {
	runCmd.Flags().IntVar(&runFiles, "files", 1, "Estimated number of files the request touches")
	runCmd.Flags().Float64Var(&runConfidence, "confidence", 1.0, "Requirement confidence between 0 and 1")
	runCmd.Flags().BoolVar(&runOverride, "override", false, "Request contradicts a previously recorded decision")
	runCmd.Flags().StringSliceVar(&runTags, "tags", nil, "Domain tags for worker matching")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run without TUI (plain event log)")
	runCmd.Flags().StringVar(&runWorkersFile, "workers", "", "Path to a worker roster YAML file")
}

func runRequest(cmd *cobra.Command, args []string) error {
	description := args[0]

	rt, err := buildRuntime(runWorkersFile)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	watcher, err := orchestrator.NewSignalWatcher(cwd, rt.pool)
	if err != nil {
		return fmt.Errorf("start signal watcher: %w", err)
	}
	defer watcher.Close()

	md := models.RequestMetadata{
		FileCountEstimate:      runFiles,
		Confidence:             runConfidence,
		OverridesPriorDecision: runOverride,
		DomainTags:             runTags,
	}
	// Submit through the pool so the signal watcher can reach the
	// request's handle.
	handle, err := rt.pool.Submit(description, md)
	if err != nil {
		return fmt.Errorf("submit request: %w", err)
	}

	if runHeadless {
		return watchHeadless(ctx, rt, handle)
	}
	return watchTUI(ctx, rt, handle, description)
}

// watchHeadless streams events as plain colored lines until the request
// settles.
func watchHeadless(ctx context.Context, rt *runtime, handle *orchestrator.Handle) error {
	events := rt.orch.Events()
	for {
		select {
		case <-handle.Done():
			return printOutcome(handle.Status())
		case <-ctx.Done():
			handle.Abort()
			<-handle.Done()
			return printOutcome(handle.Status())
		case event, ok := <-events:
			if !ok {
				return printOutcome(handle.Status())
			}
			if event.RequestID != handle.RequestID {
				continue
			}
			printEvent(event)
		}
	}
}

// watchTUI runs the bubbletea watch view over the request.
func watchTUI(ctx context.Context, rt *runtime, handle *orchestrator.Handle, description string) error {
	program, _ := tui.NewWatchProgram(handle.RequestID, description)
	go tui.Forward(ctx, program, handle, rt.orch.Events())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	status := handle.Status()
	if status.State == orchestrator.StateInProgress {
		// Detached; the deferred pool stop aborts and drains it.
		handle.Abort()
		return nil
	}
	return printOutcome(status)
}

func printEvent(event orchestrator.Event) {
	label := string(event.Type)
	switch event.Type {
	case orchestrator.EventTaskCompleted, orchestrator.EventPlanApproved, orchestrator.EventRequestClosed:
		label = color.GreenString(label)
	case orchestrator.EventTaskRetried, orchestrator.EventPlanRejected:
		label = color.YellowString(label)
	case orchestrator.EventTaskFailed, orchestrator.EventRequestEscalated:
		label = color.RedString(label)
	}
	line := label
	if event.TaskID != "" {
		line += " " + event.TaskID
	}
	if event.Worker != "" {
		line += " [" + event.Worker + "]"
	}
	if event.Detail != "" {
		line += ": " + event.Detail
	}
	fmt.Println(line)
}

func printOutcome(status orchestrator.HandleStatus) error {
	switch status.State {
	case orchestrator.StateDone:
		fmt.Printf("%s %s\n", color.GreenString("✓"), status.Result)
		return nil
	case orchestrator.StateEscalated:
		fmt.Printf("%s escalated: %s\n", color.YellowString("⚠"), status.Reason)
		printEvidence(status.Evidence)
		return fmt.Errorf("request escalated")
	default:
		fmt.Printf("%s failed: %s\n", color.RedString("✗"), status.Reason)
		printEvidence(status.Evidence)
		return fmt.Errorf("request failed")
	}
}

func printEvidence(ev models.Evidence) {
	if ev.TaskID != "" {
		fmt.Printf("  task:  %s\n", ev.TaskID)
	}
	if ev.CheckName != "" {
		fmt.Printf("  check: %s\n", ev.CheckName)
	}
	if ev.Detail != "" {
		fmt.Printf("  detail: %s\n", ev.Detail)
	}
}
