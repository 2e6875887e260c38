package orchestrator

import (
	"testing"
	"time"

	"github.com/podium-dev/podium/pkg/models"
)

func TestPool_SubmitAndWait(t *testing.T) {
	o := newTestOrchestrator(t, newStubFactory(), newStubChecker())
	p := NewPool(o)

	md := models.RequestMetadata{FileCountEstimate: 2, Confidence: 1.0, DomainTags: []string{"backend"}}
	h1, err := p.Submit("first change", md)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := p.Submit("second change", md)
	if err != nil {
		t.Fatal(err)
	}
	if h1.RequestID == h2.RequestID {
		t.Errorf("duplicate request IDs: %s", h1.RequestID)
	}

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("pool did not drain")
	}
	if p.Count() != 0 {
		t.Errorf("Count = %d after Wait, want 0", p.Count())
	}
}

func TestPool_AbortAll(t *testing.T) {
	factory := newStubFactory()
	started := make(chan struct{})
	release := make(chan struct{})
	factory.behaviors["scout"] = func(call int, a models.Assignment) (models.Artifact, error) {
		close(started)
		<-release
		return models.Artifact{}, nil
	}

	o := newTestOrchestrator(t, factory, newStubChecker())
	p := NewPool(o)

	h, err := p.Submit("add a --verbose flag",
		models.RequestMetadata{FileCountEstimate: 2, Confidence: 1.0, DomainTags: []string{"backend"}})
	if err != nil {
		t.Fatal(err)
	}

	<-started
	if p.Handle(h.RequestID) == nil {
		t.Fatal("live handle not tracked")
	}
	p.AbortAll()
	close(release)
	p.Wait()

	if status := h.Status(); status.State != StateFailed {
		t.Errorf("state = %s after abort, want failed", status.State)
	}
}
