// Package graph implements the dependency-gated task graph.
// A single Graph instance owns all task mutation; every operation is
// serialized so the readiness invariant (a task runs only after all of
// its dependencies are done) holds under concurrent claims.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gammazero/toposort"
	"github.com/google/uuid"

	"github.com/podium-dev/podium/pkg/models"
)

// ErrCycle indicates an insert would create a circular dependency.
var ErrCycle = errors.New("circular dependency detected")

// ErrNotReady indicates a claim on a task with unmet dependencies.
var ErrNotReady = errors.New("task dependencies not done")

// ErrAlreadyClaimed indicates a claim on a task that is not pending.
var ErrAlreadyClaimed = errors.New("task already claimed")

// ErrUnknownTask indicates an operation on a task ID not in the graph.
var ErrUnknownTask = errors.New("unknown task")

// ErrMaxRetries indicates a task exhausted its retry budget and is now
// terminally failed. The caller must escalate the enclosing request.
var ErrMaxRetries = errors.New("max retries exceeded")

// Completion describes the effect of applying a verdict to a task.
type Completion struct {
	// Task is the task after the verdict was applied.
	Task *models.Task
	// Unblocked lists direct dependents that became pending because of
	// this completion. Only one dependency-satisfaction check happens
	// per completion event; nothing cascades transitively.
	Unblocked []string
	// Retried is true if the task was reset to pending for another attempt.
	Retried bool
	// Escalate is true if the task failed terminally and the enclosing
	// request must surface to the caller.
	Escalate bool
	// Duplicate is true if the verdict was already applied. The whole
	// completion is a no-op in that case.
	Duplicate bool
}

// Graph is a mutex-guarded DAG of tasks with dependency edges.
type Graph struct {
	mu sync.Mutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// dependents maps task ID to IDs of tasks that depend on it, so a
	// completion re-evaluates only its out-edges, not the whole graph.
	dependents map[string][]string
	// applied tracks verdict IDs already consumed, making completion
	// idempotent under duplicate verdict delivery.
	applied map[string]bool
	// maxRetries bounds re-assignment of a failing task before it goes
	// terminally failed.
	maxRetries int
}

// New creates an empty Graph. maxRetries is the number of times a task
// may be retried after a failing verdict before it fails terminally.
func New(maxRetries int) *Graph {
	return &Graph{
		nodes:      make(map[string]*models.Task),
		dependents: make(map[string][]string),
		applied:    make(map[string]bool),
		maxRetries: maxRetries,
	}
}

// Add inserts a task into the graph. Dependencies must already exist.
// The edge set is checked for cycles before committing; on ErrCycle the
// graph is unchanged. New tasks start pending, or blocked if any
// dependency is not yet done.
func (g *Graph) Add(task *models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()[:8]
	}
	if _, exists := g.nodes[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	for _, depID := range task.DependsOn {
		if _, ok := g.nodes[depID]; !ok {
			return fmt.Errorf("%w: task %s depends on %s", ErrUnknownTask, task.ID, depID)
		}
	}
	if g.wouldCycle(task) {
		return fmt.Errorf("%w: inserting task %s", ErrCycle, task.ID)
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	task.Status = models.TaskStatusPending
	if !g.depsDone(task) {
		task.Status = models.TaskStatusBlocked
		task.BlockedReason = "waiting on dependencies"
	}

	g.nodes[task.ID] = task
	for _, depID := range task.DependsOn {
		g.dependents[depID] = append(g.dependents[depID], task.ID)
	}
	return nil
}

// wouldCycle runs DFS from the new task's dependencies to see whether
// any path leads back to the task being inserted.
// Caller must hold g.mu.
func (g *Graph) wouldCycle(task *models.Task) bool {
	visited := make(map[string]bool)
	var visit func(id string) bool
	visit = func(id string) bool {
		if id == task.ID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		if node, ok := g.nodes[id]; ok {
			for _, depID := range node.DependsOn {
				if visit(depID) {
					return true
				}
			}
		}
		return false
	}
	for _, depID := range task.DependsOn {
		if visit(depID) {
			return true
		}
	}
	return false
}

// Claim assigns a pending task to a worker role. Exactly one concurrent
// claim succeeds; the rest get ErrAlreadyClaimed. A claim on a task with
// unmet dependencies fails with ErrNotReady.
func (g *Graph) Claim(taskID, workerRole string) (*models.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if !g.depsDone(task) {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, taskID)
	}
	if task.Status != models.TaskStatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyClaimed, taskID, task.Status)
	}

	task.Status = models.TaskStatusClaimed
	task.AssignedRole = workerRole
	return task, nil
}

// Start transitions a claimed task to in_progress. The readiness
// invariant was established at claim time and dependencies cannot
// un-complete, so only the claim state is checked here.
func (g *Graph) Start(taskID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if task.Status != models.TaskStatusClaimed {
		return fmt.Errorf("task %s is %s, expected claimed", taskID, task.Status)
	}
	task.Status = models.TaskStatusInProgress
	return nil
}

// Complete applies a verdict to a task. A pass marks the task done and
// re-evaluates its direct dependents for readiness. A fail resets the
// task to pending with the retry counter incremented, until maxRetries
// is exceeded, at which point the task fails terminally and the result
// carries Escalate. Verdicts are correlated by ID: applying the same
// verdict twice is a no-op.
func (g *Graph) Complete(taskID string, verdict models.Verdict) (Completion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[taskID]
	if !ok {
		return Completion{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if verdict.ID != "" && g.applied[verdict.ID] {
		return Completion{Task: task, Duplicate: true}, nil
	}
	if verdict.ID != "" {
		g.applied[verdict.ID] = true
	}
	if task.Status.Terminal() {
		// Late verdict for a cancelled or already-resolved task. Logged
		// by the caller, never reopens the task.
		return Completion{Task: task, Duplicate: true}, nil
	}

	if verdict.Outcome == models.OutcomePass {
		now := time.Now()
		task.Status = models.TaskStatusDone
		task.CompletedAt = &now
		task.RejectionReason = ""
		return Completion{Task: task, Unblocked: g.unblockDependents(taskID)}, nil
	}

	// Fail path: retry or escalate.
	task.RetryCount++
	task.RejectionReason = fmt.Sprintf("check %s: %s", verdict.CheckName, verdict.Detail.Reason)
	if task.RetryCount > g.maxRetries {
		now := time.Now()
		task.Status = models.TaskStatusFailed
		task.CompletedAt = &now
		g.blockDependents(taskID)
		return Completion{Task: task, Escalate: true}, ErrMaxRetries
	}
	task.Status = models.TaskStatusPending
	task.AssignedRole = ""
	return Completion{Task: task, Retried: true}, nil
}

// Approve marks a task done outside the verdict path. Plan tasks cannot
// complete via hook verdicts; the orchestrator's gate calls this.
func (g *Graph) Approve(taskID string) (Completion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[taskID]
	if !ok {
		return Completion{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	now := time.Now()
	task.Status = models.TaskStatusDone
	task.CompletedAt = &now
	task.RejectionReason = ""
	return Completion{Task: task, Unblocked: g.unblockDependents(taskID)}, nil
}

// Reject resets a task to pending with a rejection reason. Used by the
// plan-approval gate; resubmission is unbounded and does not consume
// the retry budget.
func (g *Graph) Reject(taskID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	task.Status = models.TaskStatusPending
	task.AssignedRole = ""
	task.RejectionReason = reason
	return nil
}

// unblockDependents re-checks the direct dependents of a finished task
// and returns the IDs that became pending. O(out-degree) per completion.
// Caller must hold g.mu.
func (g *Graph) unblockDependents(taskID string) []string {
	var unblocked []string
	for _, depID := range g.dependents[taskID] {
		dep := g.nodes[depID]
		if dep.Status != models.TaskStatusBlocked {
			continue
		}
		if g.depsDone(dep) {
			dep.Status = models.TaskStatusPending
			dep.BlockedReason = ""
			unblocked = append(unblocked, depID)
		}
	}
	return unblocked
}

// blockDependents marks pending dependents of a failed task blocked so
// their state is visible rather than silently stuck.
// Caller must hold g.mu.
func (g *Graph) blockDependents(taskID string) {
	for _, depID := range g.dependents[taskID] {
		dep := g.nodes[depID]
		if dep.Status == models.TaskStatusPending || dep.Status == models.TaskStatusBlocked {
			dep.Status = models.TaskStatusBlocked
			dep.BlockedReason = "dependency_failed:" + taskID
		}
	}
}

// CancelRequest fails every not-yet-done task belonging to a request and
// returns their IDs. In-flight work is not preempted; its late verdict
// is ignored when it arrives.
func (g *Graph) CancelRequest(requestID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var cancelled []string
	now := time.Now()
	for id, task := range g.nodes {
		if task.RequestID != requestID || task.Status.Terminal() {
			continue
		}
		task.Status = models.TaskStatusFailed
		task.RejectionReason = "cancelled"
		task.CompletedAt = &now
		cancelled = append(cancelled, id)
	}
	sort.Strings(cancelled)
	return cancelled
}

// Ready returns pending tasks whose dependencies are all done, ordered
// by priority (ascending) then creation time.
func (g *Graph) Ready() []*models.Task {
	g.mu.Lock()
	defer g.mu.Unlock()

	var ready []*models.Task
	for _, task := range g.nodes {
		if task.Status != models.TaskStatusPending {
			continue
		}
		if g.depsDone(task) {
			ready = append(ready, task)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority < ready[j].Priority
		}
		return ready[i].CreatedAt.Before(ready[j].CreatedAt)
	})
	return ready
}

// ExecutionOrder returns all task IDs in dependency order. Used for
// reproducible plan listings; scheduling itself is readiness-driven.
func (g *Graph) ExecutionOrder() ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var edges []toposort.Edge
	for id, task := range g.nodes {
		if len(task.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, depID := range task.DependsOn {
			edges = append(edges, toposort.Edge{depID, id})
		}
	}
	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycle, err)
	}
	order := make([]string, 0, len(g.nodes))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}
	return order, nil
}

// Task returns the task for an ID, or nil if not found.
func (g *Graph) Task(taskID string) *models.Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[taskID]
}

// Tasks returns all tasks for a request, ordered by creation time.
// An empty requestID returns every task in the graph.
func (g *Graph) Tasks(requestID string) []*models.Task {
	g.mu.Lock()
	defer g.mu.Unlock()

	var tasks []*models.Task
	for _, task := range g.nodes {
		if requestID == "" || task.RequestID == requestID {
			tasks = append(tasks, task)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

// Dependents returns the IDs of tasks that depend on the given task.
func (g *Graph) Dependents(taskID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.dependents[taskID]))
	copy(out, g.dependents[taskID])
	return out
}

// Size returns the number of tasks in the graph.
func (g *Graph) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Settled reports whether every task of a request is terminal.
func (g *Graph) Settled(requestID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, task := range g.nodes {
		if task.RequestID == requestID && !task.Status.Terminal() {
			return false
		}
	}
	return true
}

// depsDone checks only the task's own dependency edges, keeping
// readiness recomputation proportional to edge count rather than
// graph size.
// Caller must hold g.mu.
func (g *Graph) depsDone(task *models.Task) bool {
	for _, depID := range task.DependsOn {
		dep, ok := g.nodes[depID]
		if !ok || dep.Status != models.TaskStatusDone {
			return false
		}
	}
	return true
}
