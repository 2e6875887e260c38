package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/podium-dev/podium/pkg/models"
)

func TestSignalWatcher_AbortFileReachesPoolRequests(t *testing.T) {
	factory := newStubFactory()
	started := make(chan struct{})
	release := make(chan struct{})
	factory.behaviors["scout"] = func(call int, a models.Assignment) (models.Artifact, error) {
		close(started)
		<-release
		return models.Artifact{Summary: "scanned"}, nil
	}

	p := NewPool(newTestOrchestrator(t, factory, newStubChecker()))
	dir := t.TempDir()
	sw, err := NewSignalWatcher(dir, p)
	if err != nil {
		t.Fatal(err)
	}
	defer sw.Close()

	h, err := p.Submit("add a --verbose flag",
		models.RequestMetadata{FileCountEstimate: 2, Confidence: 1.0, DomainTags: []string{"backend"}})
	if err != nil {
		t.Fatal(err)
	}
	<-started

	abortFile := filepath.Join(dir, ".podium", "signals", "abort")
	if err := os.WriteFile(abortFile, nil, 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !sw.Aborted() {
		if time.Now().After(deadline) {
			t.Fatal("abort signal file never observed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	close(release)

	status := waitDone(t, h)
	if status.State != StateFailed {
		t.Errorf("state = %s after abort signal, want failed", status.State)
	}
}

func TestSignalWatcher_TargetedAbort(t *testing.T) {
	factory := newStubFactory()
	release := make(chan struct{})
	factory.behaviors["scout"] = func(call int, a models.Assignment) (models.Artifact, error) {
		if strings.Contains(a.Description, "first") {
			<-release
		}
		return models.Artifact{Summary: "scanned"}, nil
	}

	p := NewPool(newTestOrchestrator(t, factory, newStubChecker()))
	sw, err := NewSignalWatcher(t.TempDir(), p)
	if err != nil {
		t.Fatal(err)
	}
	defer sw.Close()

	md := models.RequestMetadata{FileCountEstimate: 2, Confidence: 1.0, DomainTags: []string{"backend"}}
	h1, err := p.Submit("first change", md)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := p.Submit("second change", md)
	if err != nil {
		t.Fatal(err)
	}

	sw.apply("abort-" + h1.RequestID)
	// Unknown and empty targets are ignored.
	sw.apply("abort-nonexistent")
	sw.apply("abort-")
	close(release)

	if status := waitDone(t, h1); status.State != StateFailed {
		t.Errorf("aborted request state = %s, want failed", status.State)
	}
	if status := waitDone(t, h2); status.State != StateDone {
		t.Errorf("sibling request state = %s, want done", status.State)
	}
	if sw.Aborted() {
		t.Error("targeted abort flagged a global abort")
	}
}
