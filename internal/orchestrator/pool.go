package orchestrator

import (
	"context"
	"sync"

	"github.com/podium-dev/podium/pkg/models"
)

// Pool tracks the handles of every request submitted through it, so a
// caller driving several requests at once can wait on all of them and
// shut the orchestrator down cleanly.
type Pool struct {
	orch *Orchestrator

	// handles tracks live requests by ID
	handles map[string]*Handle
	mu      sync.RWMutex

	// ctx and cancel for pool lifecycle
	ctx    context.Context
	cancel context.CancelFunc

	// wg tracks waiters watching request completion
	wg sync.WaitGroup
}

// NewPool creates a Pool over an orchestrator.
func NewPool(orch *Orchestrator) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		orch:    orch,
		handles: make(map[string]*Handle),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit forwards a request to the orchestrator and tracks its handle
// so abort signals can reach it.
func (p *Pool) Submit(description string, md models.RequestMetadata) (*Handle, error) {
	handle, err := p.orch.Submit(p.ctx, description, md)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.handles[handle.RequestID] = handle
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		handle.Wait(p.ctx)

		p.mu.Lock()
		delete(p.handles, handle.RequestID)
		p.mu.Unlock()
	}()

	return handle, nil
}

// Handle returns the live handle for a request ID, or nil if the
// request already finished.
func (p *Pool) Handle(requestID string) *Handle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.handles[requestID]
}

// Events returns the orchestrator's event channel.
func (p *Pool) Events() <-chan Event {
	return p.orch.Events()
}

// Count returns the number of live requests.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handles)
}

// AbortAll aborts every live request without stopping the pool.
func (p *Pool) AbortAll() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, handle := range p.handles {
		handle.Abort()
	}
}

// Wait blocks until every submitted request reaches a terminal state.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Stop aborts all live requests, waits for them, and shuts down the
// orchestrator. The event channel is closed afterwards.
func (p *Pool) Stop() error {
	p.cancel()
	p.wg.Wait()
	p.orch.Stop()
	return nil
}
