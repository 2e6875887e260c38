// Package tui provides the terminal user interface for Podium's run command.
//
// This package contains a read-only watch view that displays request
// progress in real-time: the request's tier, each task's status as it
// moves through the graph, and an activity log of orchestrator events.
// Users can only quit with 'q' or Ctrl+C.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/podium-dev/podium/internal/orchestrator"
)

// EventMsg wraps an orchestrator event for the watch view.
type EventMsg struct {
	Event orchestrator.Event
}

// DoneMsg signals that the watched request reached a terminal state.
type DoneMsg struct {
	Status orchestrator.HandleStatus
}

// LogEntry represents one line in the activity log.
type LogEntry struct {
	Timestamp time.Time
	Message   string
}

// taskRow tracks the last-seen state of one task.
type taskRow struct {
	id     string
	worker string
	state  string
}

// Watch is the bubbletea model for the run command's progress view.
type Watch struct {
	// requestID is the request being watched.
	requestID string
	// description is the submitted request text.
	description string
	// tier is the classification, set on the classified event.
	tier string
	// tasks is the ordered list of tasks seen so far.
	tasks []*taskRow
	// logs is the activity log, newest last.
	logs []LogEntry
	// spinner animates while the request is in flight.
	spinner spinner.Model
	// width is the terminal width.
	width int
	// done indicates the request reached a terminal state.
	done bool
	// final holds the terminal status once done.
	final orchestrator.HandleStatus
	// quitting indicates the view is shutting down.
	quitting bool
}

// NewWatch creates a watch model for one request.
func NewWatch(requestID, description string) *Watch {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	return &Watch{
		requestID:   requestID,
		description: description,
		spinner:     sp,
		width:       80,
	}
}

// Init implements tea.Model.
func (w *Watch) Init() tea.Cmd {
	return w.spinner.Tick
}

// Update implements tea.Model.
func (w *Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			w.quitting = true
			return w, tea.Quit
		}
	case tea.WindowSizeMsg:
		w.width = msg.Width
	case EventMsg:
		w.apply(msg.Event)
		return w, nil
	case DoneMsg:
		w.done = true
		w.final = msg.Status
		return w, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd
	}
	return w, nil
}

// apply folds one orchestrator event into the model.
func (w *Watch) apply(event orchestrator.Event) {
	switch event.Type {
	case orchestrator.EventRequestClassified:
		w.tier = event.Detail
	case orchestrator.EventTaskQueued:
		w.setTask(event.TaskID, "", "pending")
	case orchestrator.EventTaskStarted:
		w.setTask(event.TaskID, event.Worker, "in_progress")
	case orchestrator.EventTaskCompleted, orchestrator.EventPlanApproved:
		w.setTask(event.TaskID, event.Worker, "done")
	case orchestrator.EventTaskRetried, orchestrator.EventPlanRejected:
		w.setTask(event.TaskID, event.Worker, "retrying")
	case orchestrator.EventTaskFailed:
		w.setTask(event.TaskID, event.Worker, "failed")
	}
	w.log(event)
}

func (w *Watch) setTask(id, worker, state string) {
	for _, row := range w.tasks {
		if row.id == id {
			if worker != "" {
				row.worker = worker
			}
			row.state = state
			return
		}
	}
	w.tasks = append(w.tasks, &taskRow{id: id, worker: worker, state: state})
}

func (w *Watch) log(event orchestrator.Event) {
	msg := string(event.Type)
	if event.TaskID != "" {
		msg += " " + event.TaskID
	}
	if event.Worker != "" {
		msg += " [" + event.Worker + "]"
	}
	if event.Detail != "" {
		msg += ": " + event.Detail
	}
	w.logs = append(w.logs, LogEntry{Timestamp: event.Time, Message: msg})
	if len(w.logs) > 200 {
		w.logs = w.logs[len(w.logs)-200:]
	}
}

// View implements tea.Model.
func (w *Watch) View() string {
	if w.quitting && !w.done {
		return "\n  Detached. The request keeps running.\n"
	}

	var out string
	out += titleStyle.Render("podium") + " " + dimStyle.Render("request "+w.requestID)
	if w.tier != "" {
		out += " " + tierStyle.Render(w.tier)
	}
	out += "\n"
	out += dimStyle.Render(truncate(w.description, w.width-4)) + "\n\n"

	for _, row := range w.tasks {
		out += "  " + taskStateStyle(row.state).Render(fmt.Sprintf("%-11s", row.state))
		out += " " + row.id
		if row.worker != "" {
			out += dimStyle.Render(" "+row.worker)
		}
		out += "\n"
	}
	if len(w.tasks) > 0 {
		out += "\n"
	}

	logs := w.logs
	if len(logs) > 8 {
		logs = logs[len(logs)-8:]
	}
	for _, entry := range logs {
		out += dimStyle.Render("  "+entry.Timestamp.Format("15:04:05")+" "+truncate(entry.Message, w.width-14)) + "\n"
	}

	if w.done {
		out += "\n  " + finalStyle(string(w.final.State)).Render(string(w.final.State))
		if w.final.Reason != "" {
			out += " " + w.final.Reason
		} else if w.final.Result != "" {
			out += " " + w.final.Result
		}
		out += "\n"
	} else {
		out += "\n  " + w.spinner.View() + dimStyle.Render(" working... press q to detach") + "\n"
	}
	return out
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
