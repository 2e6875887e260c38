package models

import "time"

// RequestState tracks a request through the orchestrator's state machine.
type RequestState string

const (
	RequestReceived        RequestState = "received"
	RequestClassified      RequestState = "classified"
	RequestDispatched      RequestState = "dispatched"
	RequestAwaitingVerdict RequestState = "awaiting_verdict"
	RequestResolved        RequestState = "resolved"
	RequestEscalated       RequestState = "escalated"
	RequestClosed          RequestState = "closed"
)

// Valid returns true if the state is a known value.
func (s RequestState) Valid() bool {
	switch s {
	case RequestReceived, RequestClassified, RequestDispatched,
		RequestAwaitingVerdict, RequestResolved, RequestEscalated, RequestClosed:
		return true
	default:
		return false
	}
}

// RequestMetadata is the deterministic input to request classification.
// The classifier is a pure, total function over these fields.
type RequestMetadata struct {
	// FileCountEstimate is a rough count of files the request touches.
	FileCountEstimate int `json:"file_count_estimate"`
	// Confidence is the caller's confidence in the request wording (0-1).
	Confidence float64 `json:"confidence"`
	// OverridesPriorDecision flags requests that reverse an earlier decision.
	OverridesPriorDecision bool `json:"overrides_prior_decision,omitempty"`
	// DomainTags route the request's tasks to capable workers.
	DomainTags []string `json:"domain_tags,omitempty"`
}

// Request is an orchestration request submitted by an external caller.
type Request struct {
	// ID is the unique identifier for this request.
	ID string `json:"id"`
	// Description is the work being asked for.
	Description string `json:"description"`
	// Metadata drives classification.
	Metadata RequestMetadata `json:"metadata"`
	// Tier is the complexity classification, set once classified.
	Tier Tier `json:"tier,omitempty"`
	// State is the current state-machine state.
	State RequestState `json:"state"`
	// SubmittedAt is when the request entered the orchestrator.
	SubmittedAt time.Time `json:"submitted_at"`
	// ClosedAt is when the request reached CLOSED, if it has.
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// Evidence points a caller at what went wrong: which task, which verdict,
// which check. Escalated and failed outcomes always carry it.
type Evidence struct {
	TaskID    string `json:"task_id,omitempty"`
	VerdictID string `json:"verdict_id,omitempty"`
	CheckName string `json:"check_name,omitempty"`
	Detail    string `json:"detail,omitempty"`
}
