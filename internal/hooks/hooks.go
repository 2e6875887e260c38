// Package hooks executes mechanical verification checks (tests, build,
// lint, types) over a worker's declared artifacts and classifies the
// results as pass, fail, or not_available. Checks are selected by a
// static project-marker mapping; nothing is executed speculatively.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/podium-dev/podium/internal/exec"
	"github.com/podium-dev/podium/pkg/models"
)

// ErrTimeout marks a check that exceeded its wall-clock limit.
var ErrTimeout = errors.New("hook timed out")

// ErrToolMissing marks a check whose tooling is not installed.
var ErrToolMissing = errors.New("hook tool not found")

// DefaultTimeout is the per-check wall-clock limit.
const DefaultTimeout = 5 * time.Minute

// DefaultExcerptLines bounds the evidence returned with a verdict.
const DefaultExcerptLines = 20

// Check is one mechanical verification command.
type Check struct {
	// Name identifies the check ("tests", "build", "lint", "types").
	Name string `yaml:"name"`
	// Command is the argv to execute.
	Command []string `yaml:"command"`
	// Mandatory checks must pass for acceptance. Optional checks may be
	// not_available without blocking.
	Mandatory bool `yaml:"mandatory"`
}

// Ecosystem binds a project marker file to the checks it selects.
type Ecosystem struct {
	// Name is the ecosystem label ("go", "node", ...).
	Name string `yaml:"name"`
	// Marker is the file whose presence selects this ecosystem.
	Marker string `yaml:"marker"`
	// Checks are the commands run for artifacts in this ecosystem.
	Checks []Check `yaml:"checks"`
}

// DefaultEcosystems returns the built-in marker-to-check mapping.
func DefaultEcosystems() []Ecosystem {
	return []Ecosystem{
		{
			Name:   "go",
			Marker: "go.mod",
			Checks: []Check{
				{Name: "build", Command: []string{"go", "build", "./..."}, Mandatory: true},
				{Name: "tests", Command: []string{"go", "test", "./..."}, Mandatory: true},
				{Name: "lint", Command: []string{"go", "vet", "./..."}},
			},
		},
		{
			Name:   "node",
			Marker: "package.json",
			Checks: []Check{
				{Name: "build", Command: []string{"npm", "run", "build"}, Mandatory: true},
				{Name: "tests", Command: []string{"npm", "test"}, Mandatory: true},
				{Name: "types", Command: []string{"npx", "tsc", "--noEmit"}},
			},
		},
		{
			Name:   "rust",
			Marker: "Cargo.toml",
			Checks: []Check{
				{Name: "build", Command: []string{"cargo", "build"}, Mandatory: true},
				{Name: "tests", Command: []string{"cargo", "test"}, Mandatory: true},
			},
		},
		{
			Name:   "python",
			Marker: "pyproject.toml",
			Checks: []Check{
				{Name: "tests", Command: []string{"pytest"}, Mandatory: true},
				{Name: "lint", Command: []string{"ruff", "check", "."}},
			},
		},
	}
}

// Runner executes checks for artifact sets.
type Runner struct {
	runner       exec.CommandRunner
	ecosystems   []Ecosystem
	timeout      time.Duration
	excerptLines int

	mu        sync.Mutex
	mandatory map[string]bool // check name -> mandatory
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the per-check wall-clock limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithEcosystems replaces the marker-to-check mapping.
func WithEcosystems(eco []Ecosystem) Option {
	return func(r *Runner) { r.ecosystems = eco }
}

// WithExcerptLines sets how many output lines a verdict may carry.
func WithExcerptLines(n int) Option {
	return func(r *Runner) { r.excerptLines = n }
}

// NewRunner creates a Runner executing through the given CommandRunner.
func NewRunner(cr exec.CommandRunner, opts ...Option) *Runner {
	r := &Runner{
		runner:       cr,
		ecosystems:   DefaultEcosystems(),
		timeout:      DefaultTimeout,
		excerptLines: DefaultExcerptLines,
		mandatory:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, eco := range r.ecosystems {
		for _, c := range eco.Checks {
			if c.Mandatory {
				r.mandatory[c.Name] = true
			}
		}
	}
	return r
}

// Mandatory reports whether a check name is mandatory for acceptance.
func (r *Runner) Mandatory(checkName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mandatory[checkName]
}

// RunChecks runs every check selected by the artifact's project markers
// and returns one verdict per check. Checks run concurrently, each under
// its own wall-clock limit. A timed-out check is a fail with detail
// "timeout", never left hanging; a missing tool is not_available. A fail
// is never upgraded to pass.
func (r *Runner) RunChecks(ctx context.Context, workerRole string, artifact models.Artifact) ([]models.Verdict, error) {
	checks := r.selectChecks(artifact.Root)
	if len(checks) == 0 {
		return nil, nil
	}

	verdicts := make([]models.Verdict, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		g.Go(func() error {
			verdicts[i] = r.runCheck(gctx, workerRole, artifact, check)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}

// selectChecks returns the checks for every ecosystem whose marker file
// exists under root. No marker, no check.
func (r *Runner) selectChecks(root string) []Check {
	var checks []Check
	for _, eco := range r.ecosystems {
		if _, err := os.Stat(filepath.Join(root, eco.Marker)); err != nil {
			continue
		}
		checks = append(checks, eco.Checks...)
	}
	return checks
}

// runCheck executes a single check and classifies the outcome.
func (r *Runner) runCheck(ctx context.Context, workerRole string, artifact models.Artifact, check Check) models.Verdict {
	verdict := models.Verdict{
		ID:         uuid.New().String(),
		TaskID:     artifact.TaskID,
		WorkerRole: workerRole,
		CheckName:  check.Name,
	}

	if len(check.Command) == 0 {
		verdict.Outcome = models.OutcomeNotAvailable
		verdict.Detail = models.VerdictDetail{ExitCode: -1, Reason: "no command configured"}
		return verdict
	}

	// Tooling probe first so "not installed" is never misreported as a
	// check failure.
	if err := r.runner.LookPath(check.Command[0]); err != nil {
		verdict.Outcome = models.OutcomeNotAvailable
		verdict.Detail = models.VerdictDetail{
			ExitCode: -1,
			Reason:   fmt.Sprintf("%v: %s", ErrToolMissing, check.Command[0]),
		}
		return verdict
	}

	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	output, err := r.runner.Run(checkCtx, artifact.Root, check.Command[0], check.Command[1:]...)
	verdict.Duration = time.Since(start)
	verdict.Detail.ExitCode = exec.ExitCode(err)
	verdict.Detail.Excerpt = truncateLines(string(output), r.excerptLines)

	switch {
	case err == nil:
		verdict.Outcome = models.OutcomePass
	case checkCtx.Err() == context.DeadlineExceeded:
		verdict.Outcome = models.OutcomeFail
		verdict.Detail.Reason = "timeout"
	case exec.IsNotFound(err):
		verdict.Outcome = models.OutcomeNotAvailable
		verdict.Detail.Reason = fmt.Sprintf("%v: %s", ErrToolMissing, check.Command[0])
	default:
		verdict.Outcome = models.OutcomeFail
		verdict.Detail.Reason = fmt.Sprintf("exit %d", verdict.Detail.ExitCode)
	}
	return verdict
}

// FirstBlocking returns the first verdict that prevents acceptance, or
// nil if the set is acceptable (every mandatory check passed, optional
// checks at worst not_available).
func (r *Runner) FirstBlocking(verdicts []models.Verdict) *models.Verdict {
	for i := range verdicts {
		if verdicts[i].Blocking(r.Mandatory(verdicts[i].CheckName)) {
			return &verdicts[i]
		}
	}
	return nil
}

// truncateLines keeps the first n lines of s.
func truncateLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.TrimRight(s, "\n")
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-n)
}
