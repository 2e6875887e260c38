// Package worker defines the worker invocation boundary. The
// orchestrator only needs a worker to consume a dispatched assignment
// and report an artifact descriptor; how the artifact gets produced
// (script, API call, human) is the implementation's business.
package worker

import (
	"context"

	"github.com/podium-dev/podium/pkg/models"
)

// Worker produces an artifact for an assignment.
type Worker interface {
	// Spec returns the registry declaration this worker runs under.
	Spec() models.WorkerSpec

	// Execute performs the assignment and returns what was produced.
	// Implementations must honor ctx cancellation; the orchestrator
	// never preempts a worker by other means.
	Execute(ctx context.Context, assignment models.Assignment) (models.Artifact, error)
}

// Factory builds a Worker for a registered role. The orchestrator calls
// it once per dispatch so implementations are free to be stateless or
// to pool expensive resources behind it.
type Factory interface {
	NewWorker(spec models.WorkerSpec) (Worker, error)
}
