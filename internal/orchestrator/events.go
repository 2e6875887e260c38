// Package orchestrator implements the control loop that turns requests
// into dependency-gated task graphs and drives them to resolution.
package orchestrator

import "time"

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventRequestClassified indicates a request was assigned a tier.
	EventRequestClassified EventType = "request_classified"
	// EventTaskQueued indicates a task became ready for dispatch.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a worker began executing a task.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskRetried indicates a task was reset for another attempt.
	EventTaskRetried EventType = "task_retried"
	// EventTaskFailed indicates a task failed terminally.
	EventTaskFailed EventType = "task_failed"
	// EventPlanApproved indicates the plan gate approved a plan task.
	EventPlanApproved EventType = "plan_approved"
	// EventPlanRejected indicates the plan gate sent a plan back.
	EventPlanRejected EventType = "plan_rejected"
	// EventRequestEscalated indicates a request surfaced to the caller.
	EventRequestEscalated EventType = "request_escalated"
	// EventRequestClosed indicates a request reached its terminal state.
	EventRequestClosed EventType = "request_closed"
)

// Event is one observable orchestrator occurrence, consumed by the CLI
// and the TUI.
type Event struct {
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id"`
	TaskID    string    `json:"task_id,omitempty"`
	Worker    string    `json:"worker,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Time      time.Time `json:"time"`
}
