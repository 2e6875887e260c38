package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/podium-dev/podium/internal/orchestrator"
)

// NewWatchProgram creates the bubbletea program for watching one request.
//
// Usage:
//
//	program, _ := tui.NewWatchProgram(requestID, description)
//	go tui.Forward(ctx, program, handle, events)
//	program.Run()
func NewWatchProgram(requestID, description string) (*tea.Program, *Watch) {
	model := NewWatch(requestID, description)
	program := tea.NewProgram(model)
	return program, model
}

// Forward pumps orchestrator events for one request into a watch
// program and sends DoneMsg when the handle settles. Events belonging
// to other requests are dropped.
func Forward(ctx context.Context, program *tea.Program, handle *orchestrator.Handle, events <-chan orchestrator.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-handle.Done():
			program.Send(DoneMsg{Status: handle.Status()})
			return
		case event, ok := <-events:
			if !ok {
				program.Send(DoneMsg{Status: handle.Status()})
				return
			}
			if event.RequestID == handle.RequestID {
				program.Send(EventMsg{Event: event})
			}
		}
	}
}
