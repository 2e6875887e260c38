package orchestrator

import (
	"context"
	"sync"

	"github.com/podium-dev/podium/pkg/models"
)

// HandleState is what a caller polling a request observes.
type HandleState string

const (
	// StateInProgress means the request has not reached a terminal state.
	StateInProgress HandleState = "in_progress"
	// StateDone means every task resolved and the request closed clean.
	StateDone HandleState = "done"
	// StateEscalated means automatic resolution was disallowed or
	// exhausted and the request surfaced to the caller.
	StateEscalated HandleState = "escalated"
	// StateFailed means the request terminated without a usable result.
	StateFailed HandleState = "failed"
)

// HandleStatus is a point-in-time view of a request's outcome.
// Escalated and failed always carry the evidence needed to act.
type HandleStatus struct {
	State    HandleState     `json:"state"`
	Result   string          `json:"result,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Evidence models.Evidence `json:"evidence,omitempty"`
}

// Handle is the caller's reference to a submitted request. Completion
// is observed by polling Status or blocking in Wait.
type Handle struct {
	RequestID string

	o  *Orchestrator
	rs *requestState
}

// Status returns the current view of the request.
func (h *Handle) Status() HandleStatus {
	h.o.mu.Lock()
	defer h.o.mu.Unlock()
	return h.rs.status
}

// Done returns a channel closed when the request reaches a terminal
// state. Useful in select loops; use Wait for the blocking form.
func (h *Handle) Done() <-chan struct{} {
	return h.rs.done
}

// Wait blocks until the request reaches a terminal state or ctx ends.
func (h *Handle) Wait(ctx context.Context) (HandleStatus, error) {
	select {
	case <-h.rs.done:
		return h.Status(), nil
	case <-ctx.Done():
		return h.Status(), ctx.Err()
	}
}

// Abort cancels the request: every not-yet-done task in its subgraph is
// failed and no new claims are dispatched. In-flight workers are not
// killed; their late results are logged and ignored.
func (h *Handle) Abort() {
	h.rs.abort()
}

// requestState is the orchestrator's bookkeeping for one request.
type requestState struct {
	req            *models.Request
	status         HandleStatus
	planRejections int
	// artifacts holds completed deliverables keyed by task ID, used to
	// assemble context payloads for dependent tasks.
	artifacts map[string]models.Artifact

	cancel    chan struct{}
	abortOnce sync.Once
	done      chan struct{}
}

// abort signals cancellation exactly once.
func (rs *requestState) abort() {
	rs.abortOnce.Do(func() { close(rs.cancel) })
}
