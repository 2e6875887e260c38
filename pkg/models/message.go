package models

import "time"

// RecipientAll is the broadcast sentinel. A message addressed to it is
// duplicated into every registered mailbox.
const RecipientAll = "ALL"

// MessagePriority orders messages by urgency.
type MessagePriority string

const (
	PriorityLow      MessagePriority = "LOW"
	PriorityMedium   MessagePriority = "MEDIUM"
	PriorityHigh     MessagePriority = "HIGH"
	PriorityCritical MessagePriority = "CRITICAL"
)

// Valid returns true if the priority is a known value.
func (p MessagePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Common message type tags. The field is an open string; these are the
// tags the orchestrator itself sends and reacts to.
const (
	MessageReport  = "REPORT"
	MessageHandoff = "HANDOFF"
	MessageBug     = "BUG"
	MessagePlan    = "PLAN"
	MessagePass    = "PASS"
	MessageFail    = "FAIL"
	MessageMeta    = "META"
)

// Message is a typed, directed communication unit between workers and
// the orchestrator. Delivery is store-and-forward, FIFO per recipient.
type Message struct {
	// ID is the unique identifier for this message.
	ID string `json:"id"`
	// Priority is the urgency of the message.
	Priority MessagePriority `json:"priority"`
	// Type is an open string tag (REPORT, HANDOFF, PLAN, PASS, ...).
	Type string `json:"type"`
	// Sender is the worker name (or "orchestrator") that sent the message.
	Sender string `json:"sender"`
	// Recipient is a worker name or RecipientAll for broadcast.
	Recipient string `json:"recipient"`
	// Body is the opaque text payload.
	Body string `json:"body,omitempty"`
	// ActionNeeded tells the recipient what, if anything, to do.
	ActionNeeded string `json:"action_needed,omitempty"`
	// Timestamp is when the message was enqueued.
	Timestamp time.Time `json:"timestamp"`
	// Sequence is the per-recipient mailbox sequence number. It increases
	// monotonically within a mailbox and guarantees delivery order.
	Sequence uint64 `json:"sequence"`
}
