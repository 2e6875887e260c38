package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/podium-dev/podium/internal/bus"
	"github.com/podium-dev/podium/internal/graph"
	"github.com/podium-dev/podium/internal/memory"
	"github.com/podium-dev/podium/internal/registry"
	"github.com/podium-dev/podium/internal/worker"
	"github.com/podium-dev/podium/pkg/models"
)

// ErrEscalationRequired marks a request that must surface to the caller
// instead of auto-resolving.
var ErrEscalationRequired = errors.New("escalation required")

// orchestratorSender is the sender name on messages the orchestrator
// itself enqueues.
const orchestratorSender = "orchestrator"

// CheckRunner abstracts the Hook Runner so tests can stub verdicts.
type CheckRunner interface {
	// RunChecks returns one verdict per check selected for the artifact.
	RunChecks(ctx context.Context, workerRole string, artifact models.Artifact) ([]models.Verdict, error)
	// FirstBlocking returns the first verdict preventing acceptance.
	FirstBlocking(verdicts []models.Verdict) *models.Verdict
}

// Orchestrator owns request classification, graph construction, task
// dispatch, verdict handling, and the plan-approval gate. It is the
// single writer of graph state.
type Orchestrator struct {
	registry   *registry.Registry
	factory    worker.Factory
	graph      *graph.Graph
	bus        *bus.Bus
	hooks      CheckRunner
	memory     *memory.Store
	classifier *Classifier
	gate       *PlanGate
	logger     *DebugLogger

	events        chan Event
	droppedEvents atomic.Uint64

	mu       sync.Mutex
	requests map[string]*requestState
	wg       sync.WaitGroup
}

// RequiredConfig contains the dependencies every Orchestrator needs.
type RequiredConfig struct {
	// Registry is the sealed worker registry.
	Registry *registry.Registry
	// Factory builds workers for dispatched tasks.
	Factory worker.Factory
	// Hooks runs mechanical checks over worker artifacts.
	Hooks CheckRunner
}

// Option configures optional Orchestrator collaborators.
type Option func(*Orchestrator)

// WithMemory attaches the memory store for write-backs and audit.
func WithMemory(store *memory.Store) Option {
	return func(o *Orchestrator) { o.memory = store }
}

// WithBus replaces the default message bus.
func WithBus(b *bus.Bus) Option {
	return func(o *Orchestrator) { o.bus = b }
}

// WithPlanGate replaces the default plan-approval policy.
func WithPlanGate(gate *PlanGate) Option {
	return func(o *Orchestrator) { o.gate = gate }
}

// WithClassifier replaces the default classifier.
func WithClassifier(c *Classifier) Option {
	return func(o *Orchestrator) { o.classifier = c }
}

// WithMaxRetries bounds task retries after failing verdicts.
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) { o.graph = graph.New(n) }
}

// WithLogger attaches a debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator.
func New(cfg RequiredConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:   cfg.Registry,
		factory:    cfg.Factory,
		hooks:      cfg.Hooks,
		graph:      graph.New(1),
		bus:        bus.New(),
		classifier: NewClassifier(),
		logger:     NopLogger(),
		events:     make(chan Event, 100),
		requests:   make(map[string]*requestState),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.gate == nil {
		o.gate = NewPlanGate(0, nil, o.memory)
	}
	for _, name := range o.registry.Names() {
		o.bus.RegisterMailbox(name)
	}
	return o
}

// Events returns the channel carrying orchestrator events.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// DroppedEventCount returns how many events were dropped because the
// event channel was full.
func (o *Orchestrator) DroppedEventCount() uint64 {
	return o.droppedEvents.Load()
}

// Bus exposes the message bus for passive observers.
func (o *Orchestrator) Bus() *bus.Bus {
	return o.bus
}

// Graph exposes the task graph for read-only inspection.
func (o *Orchestrator) Graph() *graph.Graph {
	return o.graph
}

// Submit classifies a request, builds its task graph, and starts
// driving it. The returned handle observes completion; a trivial
// request resolves before Submit returns.
func (o *Orchestrator) Submit(ctx context.Context, description string, md models.RequestMetadata) (*Handle, error) {
	req := &models.Request{
		ID:          uuid.New().String()[:8],
		Description: description,
		Metadata:    md,
		State:       models.RequestReceived,
		SubmittedAt: time.Now(),
	}

	req.Tier = o.classifier.Classify(description, md)
	req.State = models.RequestClassified
	o.logger.Log("[orchestrator] request %s classified %s: %s", req.ID, req.Tier, description)
	o.emit(Event{Type: EventRequestClassified, RequestID: req.ID, Detail: string(req.Tier)})

	rs := &requestState{
		req:       req,
		status:    HandleStatus{State: StateInProgress},
		artifacts: make(map[string]models.Artifact),
		cancel:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	o.mu.Lock()
	o.requests[req.ID] = rs
	o.mu.Unlock()

	handle := &Handle{RequestID: req.ID, o: o, rs: rs}

	if req.Tier == models.TierTrivial {
		// Zero tasks, immediate return.
		o.setStatus(rs, HandleStatus{State: StateDone, Result: "trivial request, no tasks required"})
		o.close(rs, models.RequestResolved)
		return handle, nil
	}

	if _, err := buildShape(o.graph, req); err != nil {
		o.mu.Lock()
		delete(o.requests, req.ID)
		o.mu.Unlock()
		return nil, err
	}
	req.State = models.RequestDispatched
	o.recordWIP(rs)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runRequest(ctx, rs)
	}()

	return handle, nil
}

// Stop aborts every in-flight request and waits for their loops to
// finish. The events channel is closed afterwards.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	for _, rs := range o.requests {
		rs.abort()
	}
	o.mu.Unlock()
	o.wg.Wait()
	close(o.events)
}

// runRequest is the control loop for one request. It claims and
// launches every ready task before blocking on any single deliverable,
// waits for completions, and finalizes the request when the subgraph
// settles or escalates. Background workers return through the
// completions channel; foreground workers run in this goroutine after
// the dispatch sweep.
func (o *Orchestrator) runRequest(ctx context.Context, rs *requestState) {
	req := rs.req
	completions := make(chan taskResult, o.graph.Size()+8)
	inflight := 0

	for {
		if o.finished(rs) {
			return
		}
		select {
		case <-rs.cancel:
			o.cancelRequest(rs, "aborted by caller")
			return
		case <-ctx.Done():
			o.cancelRequest(rs, ctx.Err().Error())
			return
		default:
		}

		// Claim and launch every ready task before blocking on any
		// foreground deliverable, so independent subgraphs keep
		// flowing. Dependency context is snapshotted here: rs.artifacts
		// is touched by this loop goroutine only.
		var foreground []pendingExec
		dispatched := 0
		for _, task := range o.graph.Ready() {
			if task.RequestID != req.ID {
				continue
			}
			spec, ok := o.selectWorker(task)
			if !ok {
				o.escalate(rs, models.Evidence{
					TaskID: task.ID,
					Detail: fmt.Sprintf("no capable worker for tags %v", task.DomainTags),
				}, "no capable worker")
				return
			}
			claimed, err := o.graph.Claim(task.ID, spec.Name)
			if err != nil {
				// Lost a claim race with another request's loop.
				o.logger.Log("[orchestrator] claim %s: %v", task.ID, err)
				continue
			}
			dispatched++
			payload := o.assembleContext(rs, claimed)
			if spec.Mode == models.ModeBackground {
				inflight++
				go func() {
					completions <- o.execTask(ctx, req, claimed, spec, payload)
				}()
				continue
			}
			foreground = append(foreground, pendingExec{task: claimed, spec: spec, payload: payload})
		}
		// Foreground workers share one execution context; each blocks
		// only its own dependency path.
		for _, fg := range foreground {
			o.handleResult(rs, o.execTask(ctx, req, fg.task, fg.spec, fg.payload))
			if o.finished(rs) {
				return
			}
		}
		if dispatched > 0 {
			continue
		}

		if inflight > 0 {
			select {
			case res := <-completions:
				inflight--
				o.handleResult(rs, res)
			case <-rs.cancel:
				o.cancelRequest(rs, "aborted by caller")
				return
			case <-ctx.Done():
				o.cancelRequest(rs, ctx.Err().Error())
				return
			}
			continue
		}

		if o.graph.Settled(req.ID) {
			o.resolve(rs)
			return
		}

		// Nothing ready, nothing running, graph not settled: blocked
		// tasks with no path forward.
		o.escalate(rs, o.firstBlockedEvidence(req.ID), "task graph stalled")
		return
	}
}

// pendingExec is one claimed task waiting for its worker to run.
type pendingExec struct {
	task    *models.Task
	spec    models.WorkerSpec
	payload string
}

// taskResult carries one task execution outcome back to the loop.
type taskResult struct {
	task     *models.Task
	spec     models.WorkerSpec
	artifact models.Artifact
	execErr  error
	verdicts []models.Verdict
	blocking *models.Verdict
	gate     *GateDecision
}

// execTask runs one claimed task through its worker and, for ordinary
// tasks, through the hook runner. It may run off the control loop for
// background workers, so it never reads per-request loop state.
func (o *Orchestrator) execTask(ctx context.Context, req *models.Request, task *models.Task, spec models.WorkerSpec, contextPayload string) taskResult {
	res := taskResult{task: task, spec: spec}

	if err := o.graph.Start(task.ID); err != nil {
		res.execErr = err
		return res
	}
	o.emit(Event{Type: EventTaskStarted, RequestID: task.RequestID, TaskID: task.ID, Worker: spec.Name})
	o.sendMessage(models.Message{
		Priority:     models.PriorityMedium,
		Type:         models.MessageHandoff,
		Sender:       orchestratorSender,
		Recipient:    spec.Name,
		Body:         task.Description,
		ActionNeeded: "execute task " + task.ID,
	})

	w, err := o.factory.NewWorker(spec)
	if err != nil {
		res.execErr = err
		return res
	}
	artifact, err := w.Execute(ctx, models.Assignment{
		TaskID:      task.ID,
		Description: task.Description,
		Context:     contextPayload,
	})
	if err != nil {
		res.execErr = err
		return res
	}
	res.artifact = artifact

	switch task.Type {
	case models.TaskTypePlan:
		decision := o.gate.Decide(req, artifact)
		res.gate = &decision
		return res
	case models.TaskTypeAdvocate, models.TaskTypeAdversary:
		// Review nodes deliver findings, not artifacts to check.
		return res
	}

	verdicts, err := o.hooks.RunChecks(ctx, spec.Name, artifact)
	if err != nil {
		res.execErr = err
		return res
	}
	res.verdicts = verdicts
	res.blocking = o.hooks.FirstBlocking(verdicts)
	return res
}

// handleResult applies one task execution outcome to the graph and the
// request's state.
func (o *Orchestrator) handleResult(rs *requestState, res taskResult) {
	task := res.task
	req := rs.req

	if o.finished(rs) {
		// Late completion for a cancelled or escalated request: logged,
		// never reopened.
		o.logger.Log("[orchestrator] late result for task %s on finished request %s, ignored", task.ID, req.ID)
		return
	}

	if res.execErr != nil {
		o.applyVerdict(rs, res, models.Verdict{
			ID:         uuid.New().String(),
			TaskID:     task.ID,
			WorkerRole: res.spec.Name,
			CheckName:  "execution-evidence",
			Outcome:    models.OutcomeFail,
			Detail:     models.VerdictDetail{ExitCode: -1, Reason: res.execErr.Error()},
		})
		return
	}

	if res.gate != nil {
		o.applyGate(rs, res)
		return
	}

	if task.Type == models.TaskTypeAdversary && res.artifact.Reconsider {
		// A high-severity adversarial finding is never auto-resolved.
		o.escalate(rs, models.Evidence{
			TaskID: task.ID,
			Detail: firstExcerpt(res.artifact.Summary),
		}, "adversary review rated RECONSIDER")
		return
	}

	if res.blocking != nil {
		o.applyVerdict(rs, res, *res.blocking)
		return
	}

	// Accepted. The completion verdict must itself be a pass: an
	// optional check's not_available never blocks but never completes
	// either. Tasks whose verdict set carries no pass (or selected no
	// checks at all) complete on execution evidence alone.
	pass := models.Verdict{
		ID:         uuid.New().String(),
		TaskID:     task.ID,
		WorkerRole: res.spec.Name,
		CheckName:  "execution-evidence",
		Outcome:    models.OutcomePass,
	}
	for i := range res.verdicts {
		if res.verdicts[i].Outcome == models.OutcomePass {
			pass = res.verdicts[i]
			break
		}
	}
	o.applyVerdict(rs, res, pass)
}

// applyVerdict feeds a verdict into the graph and reacts: pass marks
// done and queues unblocked dependents, fail retries until the budget
// is exhausted and then escalates.
func (o *Orchestrator) applyVerdict(rs *requestState, res taskResult, verdict models.Verdict) {
	task := res.task
	completion, err := o.graph.Complete(task.ID, verdict)
	if completion.Duplicate {
		o.logger.Log("[orchestrator] duplicate verdict %s for task %s, ignored", verdict.ID, task.ID)
		return
	}

	if errors.Is(err, graph.ErrMaxRetries) {
		o.recordFailure(rs, verdict)
		o.emit(Event{Type: EventTaskFailed, RequestID: task.RequestID, TaskID: task.ID, Worker: res.spec.Name, Detail: verdict.Detail.Reason})
		o.escalate(rs, models.Evidence{
			TaskID:    task.ID,
			VerdictID: verdict.ID,
			CheckName: verdict.CheckName,
			Detail:    verdict.Detail.Reason,
		}, "max retries exceeded")
		return
	}
	if err != nil {
		o.logger.Log("[orchestrator] complete %s: %v", task.ID, err)
		return
	}

	if completion.Retried {
		o.recordFailure(rs, verdict)
		o.emit(Event{Type: EventTaskRetried, RequestID: task.RequestID, TaskID: task.ID, Worker: res.spec.Name, Detail: verdict.Detail.Reason})
		o.sendMessage(models.Message{
			Priority:     models.PriorityHigh,
			Type:         models.MessageFail,
			Sender:       orchestratorSender,
			Recipient:    res.spec.Name,
			Body:         fmt.Sprintf("task %s rejected: check %s %s", task.ID, verdict.CheckName, verdict.Detail.Reason),
			ActionNeeded: "retry task " + task.ID,
		})
		return
	}

	// Pass.
	rs.artifacts[task.ID] = res.artifact
	o.emit(Event{Type: EventTaskCompleted, RequestID: task.RequestID, TaskID: task.ID, Worker: res.spec.Name})
	o.sendMessage(models.Message{
		Priority:  models.PriorityLow,
		Type:      models.MessagePass,
		Sender:    orchestratorSender,
		Recipient: res.spec.Name,
		Body:      "task " + task.ID + " accepted",
	})
	for _, id := range completion.Unblocked {
		o.emit(Event{Type: EventTaskQueued, RequestID: task.RequestID, TaskID: id})
	}
}

// applyGate applies a plan-gate decision. Approval is the only path to
// done for a plan task; rejection resets it with a revision message.
// Resubmission is unbounded but every cycle is counted and logged.
func (o *Orchestrator) applyGate(rs *requestState, res taskResult) {
	task := res.task
	if res.gate.Approved {
		completion, err := o.graph.Approve(task.ID)
		if err != nil {
			o.logger.Log("[orchestrator] approve plan %s: %v", task.ID, err)
			return
		}
		rs.artifacts[task.ID] = res.artifact
		o.emit(Event{Type: EventPlanApproved, RequestID: task.RequestID, TaskID: task.ID, Worker: res.spec.Name})
		for _, id := range completion.Unblocked {
			o.emit(Event{Type: EventTaskQueued, RequestID: task.RequestID, TaskID: id})
		}
		return
	}

	rs.planRejections++
	o.logger.Log("[orchestrator] plan %s rejected (cycle %d): %s", task.ID, rs.planRejections, res.gate.Reason)
	if err := o.graph.Reject(task.ID, res.gate.Reason); err != nil {
		o.logger.Log("[orchestrator] reject plan %s: %v", task.ID, err)
		return
	}
	o.emit(Event{Type: EventPlanRejected, RequestID: task.RequestID, TaskID: task.ID, Worker: res.spec.Name, Detail: res.gate.Reason})
	o.sendMessage(models.Message{
		Priority:     models.PriorityHigh,
		Type:         models.MessagePlan,
		Sender:       orchestratorSender,
		Recipient:    res.spec.Name,
		Body:         res.gate.Reason,
		ActionNeeded: "revise and resubmit plan for task " + task.ID,
	})
}

// assembleContext builds the context payload for a task from its
// dependencies' artifacts and any pending rejection reason.
func (o *Orchestrator) assembleContext(rs *requestState, task *models.Task) string {
	var parts []string
	for _, depID := range task.DependsOn {
		if artifact, ok := rs.artifacts[depID]; ok && artifact.Summary != "" {
			parts = append(parts, artifact.Summary)
		}
	}
	if task.RejectionReason != "" {
		parts = append(parts, "previous attempt rejected: "+task.RejectionReason)
	}
	return joinParts(parts)
}

// selectWorker picks the cheapest capable registered role for a task.
func (o *Orchestrator) selectWorker(task *models.Task) (models.WorkerSpec, bool) {
	matches := o.registry.Match(task.DomainTags)
	if len(matches) == 0 {
		return models.WorkerSpec{}, false
	}
	return matches[0], true
}

// cancelRequest fails the request's remaining subgraph and closes it.
func (o *Orchestrator) cancelRequest(rs *requestState, reason string) {
	cancelled := o.graph.CancelRequest(rs.req.ID)
	o.logger.Log("[orchestrator] request %s cancelled (%s), %d tasks failed", rs.req.ID, reason, len(cancelled))
	o.setStatus(rs, HandleStatus{State: StateFailed, Reason: reason})
	o.close(rs, models.RequestResolved)
}

// escalate surfaces the request to the caller, cancelling whatever has
// not finished. The orchestrator never silently overrides the finding
// that brought it here.
func (o *Orchestrator) escalate(rs *requestState, evidence models.Evidence, reason string) {
	o.graph.CancelRequest(rs.req.ID)
	o.logger.Log("[orchestrator] request %s escalated: %s (%+v)", rs.req.ID, reason, evidence)
	o.emit(Event{Type: EventRequestEscalated, RequestID: rs.req.ID, TaskID: evidence.TaskID, Detail: reason})
	o.setStatus(rs, HandleStatus{State: StateEscalated, Reason: reason, Evidence: evidence})
	o.close(rs, models.RequestEscalated)
}

// resolve finalizes a settled request.
func (o *Orchestrator) resolve(rs *requestState) {
	tasks := o.graph.Tasks(rs.req.ID)
	for _, task := range tasks {
		if task.Status == models.TaskStatusFailed {
			o.setStatus(rs, HandleStatus{
				State:  StateFailed,
				Reason: "task failed",
				Evidence: models.Evidence{
					TaskID: task.ID,
					Detail: task.RejectionReason,
				},
			})
			o.close(rs, models.RequestResolved)
			return
		}
	}
	o.setStatus(rs, HandleStatus{
		State:  StateDone,
		Result: fmt.Sprintf("%d tasks completed", len(tasks)),
	})
	o.close(rs, models.RequestResolved)
}

// close finalizes a request and performs the memory write-back: a
// decision record, failure registry entries were already appended as
// they happened, and the in-flight WIP record is cleared. The audit
// row keeps the terminal disposition (resolved or escalated); a set
// ClosedAt is what marks the request closed.
func (o *Orchestrator) close(rs *requestState, terminal models.RequestState) {
	req := rs.req
	req.State = terminal
	now := time.Now()
	req.ClosedAt = &now

	o.mu.Lock()
	status := rs.status
	o.mu.Unlock()

	if o.memory != nil {
		if err := o.memory.RecordRequest(req); err != nil {
			o.logger.Log("[orchestrator] record request %s: %v", req.ID, err)
		}
		entry := fmt.Sprintf("- %s request %s (%s) -> %s", now.Format(time.RFC3339), req.ID, req.Tier, status.State)
		if status.Reason != "" {
			entry += ": " + status.Reason
			if err := o.memory.SetRequestReason(req.ID, status.Reason); err != nil {
				o.logger.Log("[orchestrator] set reason %s: %v", req.ID, err)
			}
		}
		if err := o.memory.Append(memory.RoleConductor, memory.NamespaceDecisions, entry); err != nil {
			o.logger.Log("[orchestrator] append decision: %v", err)
		}
		if err := o.memory.Rewrite(memory.RoleConductor, memory.NamespaceWIP, ""); err != nil {
			o.logger.Log("[orchestrator] clear wip: %v", err)
		}
	}

	o.emit(Event{Type: EventRequestClosed, RequestID: req.ID, Detail: string(status.State)})
	close(rs.done)
}

// recordWIP writes the in-flight record for a dispatched request.
func (o *Orchestrator) recordWIP(rs *requestState) {
	if o.memory == nil {
		return
	}
	content := fmt.Sprintf("request: %s\ntier: %s\ndescription: %s\n", rs.req.ID, rs.req.Tier, rs.req.Description)
	if err := o.memory.Rewrite(memory.RoleConductor, memory.NamespaceWIP, content); err != nil {
		o.logger.Log("[orchestrator] record wip: %v", err)
	}
}

// recordFailure appends a failing verdict to the failure registry.
func (o *Orchestrator) recordFailure(rs *requestState, verdict models.Verdict) {
	if o.memory == nil {
		return
	}
	entry := fmt.Sprintf("- task %s check %s: %s", verdict.TaskID, verdict.CheckName, verdict.Detail.Reason)
	if err := o.memory.Append(memory.RoleLibrarian, memory.NamespaceFailures, entry); err != nil {
		o.logger.Log("[orchestrator] append failure: %v", err)
	}
}

// sendMessage enqueues a message and mirrors it into the recipient's
// audit log namespace.
func (o *Orchestrator) sendMessage(msg models.Message) {
	if _, err := o.bus.Send(msg); err != nil {
		o.logger.Log("[orchestrator] send %s to %s: %v", msg.Type, msg.Recipient, err)
		return
	}
	if o.memory != nil {
		entry := fmt.Sprintf("- [%s->%s] %s: %s", msg.Sender, msg.Recipient, msg.Type, msg.Body)
		if err := o.memory.Append(msg.Recipient, memory.LogNamespace(msg.Recipient), entry); err != nil {
			o.logger.Log("[orchestrator] log message: %v", err)
		}
	}
}

// setStatus records a terminal or intermediate handle status.
func (o *Orchestrator) setStatus(rs *requestState, status HandleStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rs.status = status
}

// finished reports whether the request already reached a terminal state.
func (o *Orchestrator) finished(rs *requestState) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return rs.status.State != StateInProgress
}

// firstBlockedEvidence extracts evidence from a stalled graph.
func (o *Orchestrator) firstBlockedEvidence(requestID string) models.Evidence {
	for _, task := range o.graph.Tasks(requestID) {
		if task.Status == models.TaskStatusBlocked {
			return models.Evidence{TaskID: task.ID, Detail: task.BlockedReason}
		}
	}
	return models.Evidence{}
}

// emit sends an event without ever blocking the control loop. Full
// channels drop the event and count it.
func (o *Orchestrator) emit(event Event) {
	event.Time = time.Now()
	select {
	case o.events <- event:
	default:
		o.droppedEvents.Add(1)
	}
}

// taskID generates a short task identifier.
func taskID() string {
	return uuid.New().String()[:8]
}

// firstExcerpt returns the first line of a summary, capped for log and
// evidence payloads.
func firstExcerpt(summary string) string {
	for i := 0; i < len(summary); i++ {
		if summary[i] == '\n' {
			summary = summary[:i]
			break
		}
	}
	if len(summary) > 200 {
		summary = summary[:200]
	}
	return summary
}

// joinParts joins non-empty strings with blank lines.
func joinParts(parts []string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += p
	}
	return out
}
