package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/podium-dev/podium/internal/exec"
	"github.com/podium-dev/podium/pkg/models"
)

// ScriptWorker runs a configured shell command to produce an artifact.
// The assignment is passed through PODIUM_* environment variables; the
// command's combined output becomes the artifact summary.
type ScriptWorker struct {
	spec    models.WorkerSpec
	runner  exec.CommandRunner
	workDir string
}

// NewScriptWorker creates a worker backed by the spec's Command.
func NewScriptWorker(spec models.WorkerSpec, runner exec.CommandRunner, workDir string) (*ScriptWorker, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("worker %s has no command configured", spec.Name)
	}
	return &ScriptWorker{spec: spec, runner: runner, workDir: workDir}, nil
}

// Spec returns the worker's registry declaration.
func (w *ScriptWorker) Spec() models.WorkerSpec {
	return w.spec
}

// Execute runs the configured command with the assignment in the
// environment and reports the working directory as the artifact root.
func (w *ScriptWorker) Execute(ctx context.Context, assignment models.Assignment) (models.Artifact, error) {
	output, err := w.runner.Run(ctx, w.workDir, "env",
		"PODIUM_TASK_ID="+assignment.TaskID,
		"PODIUM_TASK="+assignment.Description,
		"PODIUM_CONTEXT="+assignment.Context,
		"sh", "-c", w.spec.Command,
	)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("worker %s: %w: %s",
			w.spec.Name, err, firstLine(string(output)))
	}
	return models.Artifact{
		TaskID:  assignment.TaskID,
		Root:    w.workDir,
		Summary: strings.TrimSpace(string(output)),
	}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var _ Worker = (*ScriptWorker)(nil)
