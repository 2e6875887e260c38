package models

import "time"

// TaskStatus represents the current state of a task in the graph.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is ready to be claimed.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusClaimed indicates a worker has claimed the task but not started.
	TaskStatusClaimed TaskStatus = "claimed"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusBlocked indicates the task has unmet dependencies.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusDone indicates the task completed and its verdicts passed.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusFailed indicates the task exhausted retries or was cancelled.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusClaimed, TaskStatusInProgress,
		TaskStatusBlocked, TaskStatusDone, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
// Terminal tasks are retained for audit and never deleted.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusFailed
}

// TaskType categorizes a task's role inside a request's graph shape.
type TaskType string

const (
	// TaskTypeScan is a read-only survey of the affected area.
	TaskTypeScan TaskType = "scan"
	// TaskTypePlan is a plan deliverable that must pass the approval gate.
	TaskTypePlan TaskType = "plan"
	// TaskTypeImplement is the main implementation work.
	TaskTypeImplement TaskType = "implement"
	// TaskTypeVerify runs mechanical checks over the produced artifacts.
	TaskTypeVerify TaskType = "verify"
	// TaskTypeAdvocate argues for the proposed approach (critical tier).
	TaskTypeAdvocate TaskType = "advocate"
	// TaskTypeAdversary argues against the proposed approach (critical tier).
	TaskTypeAdversary TaskType = "adversary"
)

// Task represents a unit of work in the task graph.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// RequestID links the task to the request whose graph it belongs to.
	RequestID string `json:"request_id,omitempty"`
	// Description is the work to be performed.
	Description string `json:"description"`
	// Type categorizes the task within its graph shape.
	Type TaskType `json:"type"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// DependsOn lists task IDs that must be done before this task.
	DependsOn []string `json:"depends_on,omitempty"`
	// AssignedRole is the worker role that claimed this task, if any.
	AssignedRole string `json:"assigned_role,omitempty"`
	// DomainTags are capability tags used to route the task to a worker.
	DomainTags []string `json:"domain_tags,omitempty"`
	// Priority orders tasks when several are ready at once. Lower is sooner.
	Priority int `json:"priority"`
	// RetryCount is the number of times this task has been retried.
	RetryCount int `json:"retry_count,omitempty"`
	// BlockedReason records why the task is blocked, if it is.
	BlockedReason string `json:"blocked_reason,omitempty"`
	// RejectionReason records the last verdict or gate rejection.
	RejectionReason string `json:"rejection_reason,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Ready reports whether every dependency in deps is done.
// deps must contain an entry for each ID in DependsOn.
func (t *Task) Ready(deps map[string]TaskStatus) bool {
	for _, id := range t.DependsOn {
		if deps[id] != TaskStatusDone {
			return false
		}
	}
	return true
}
