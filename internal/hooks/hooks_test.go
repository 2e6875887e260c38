package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/podium-dev/podium/pkg/models"
)

// fakeRunner scripts per-command outcomes without touching a shell.
type fakeRunner struct {
	// missing tools fail the LookPath probe.
	missing map[string]bool
	// exits maps a command name to its exit error (nil means pass).
	exits map[string]error
	// hang makes a command block until its context ends.
	hang map[string]bool
	// ran records every executed command name.
	ran []string
}

// exitErr mimics a nonzero process exit for exec.ExitCode.
type exitErr struct{ code int }

func (e *exitErr) Error() string { return "exit status" }
func (e *exitErr) ExitCode() int { return e.code }

func (f *fakeRunner) Run(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	f.ran = append(f.ran, name)
	if f.hang[name] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := f.exits[name]; ok {
		return []byte("output of " + name), err
	}
	return []byte("ok"), nil
}

func (f *fakeRunner) RunShell(ctx context.Context, workDir, command string) ([]byte, error) {
	return f.Run(ctx, workDir, command)
}

func (f *fakeRunner) LookPath(name string) error {
	if f.missing[name] {
		return errors.New("not found in PATH")
	}
	return nil
}

// goProject creates a temp dir with a go.mod marker.
func goProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func artifact(root string) models.Artifact {
	return models.Artifact{TaskID: "t1", Root: root}
}

func verdictFor(t *testing.T, verdicts []models.Verdict, check string) models.Verdict {
	t.Helper()
	for _, v := range verdicts {
		if v.CheckName == check {
			return v
		}
	}
	t.Fatalf("no verdict for check %q in %v", check, verdicts)
	return models.Verdict{}
}

func TestRunChecks_AllPass(t *testing.T) {
	fake := &fakeRunner{}
	r := NewRunner(fake)

	verdicts, err := r.RunChecks(context.Background(), "builder", artifact(goProject(t)))
	if err != nil {
		t.Fatalf("RunChecks: %v", err)
	}
	if len(verdicts) != 3 {
		t.Fatalf("got %d verdicts for go project, want 3", len(verdicts))
	}
	for _, v := range verdicts {
		if v.Outcome != models.OutcomePass {
			t.Errorf("check %s outcome = %s, want pass", v.CheckName, v.Outcome)
		}
		if v.ID == "" {
			t.Errorf("check %s verdict has no ID", v.CheckName)
		}
	}
	if blocking := r.FirstBlocking(verdicts); blocking != nil {
		t.Errorf("FirstBlocking = %v, want nil", blocking)
	}
}

func TestRunChecks_FailureCarriesExitCode(t *testing.T) {
	fake := &fakeRunner{exits: map[string]error{"go": &exitErr{code: 2}}}
	r := NewRunner(fake)

	verdicts, err := r.RunChecks(context.Background(), "builder", artifact(goProject(t)))
	if err != nil {
		t.Fatal(err)
	}
	v := verdictFor(t, verdicts, "build")
	if v.Outcome != models.OutcomeFail {
		t.Fatalf("outcome = %s, want fail", v.Outcome)
	}
	if v.Detail.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", v.Detail.ExitCode)
	}
	if !strings.Contains(v.Detail.Excerpt, "output of go") {
		t.Errorf("excerpt missing command output: %q", v.Detail.Excerpt)
	}
	if r.FirstBlocking(verdicts) == nil {
		t.Error("expected a blocking verdict")
	}
}

func TestRunChecks_TimeoutIsFail(t *testing.T) {
	fake := &fakeRunner{hang: map[string]bool{"go": true}}
	r := NewRunner(fake, WithTimeout(20*time.Millisecond))

	verdicts, err := r.RunChecks(context.Background(), "builder", artifact(goProject(t)))
	if err != nil {
		t.Fatal(err)
	}
	v := verdictFor(t, verdicts, "build")
	if v.Outcome != models.OutcomeFail {
		t.Errorf("timed-out check outcome = %s, want fail", v.Outcome)
	}
	if v.Detail.Reason != "timeout" {
		t.Errorf("Reason = %q, want timeout", v.Detail.Reason)
	}
}

func TestRunChecks_MissingToolIsNotAvailable(t *testing.T) {
	fake := &fakeRunner{missing: map[string]bool{"go": true}}
	r := NewRunner(fake)

	verdicts, err := r.RunChecks(context.Background(), "builder", artifact(goProject(t)))
	if err != nil {
		t.Fatal(err)
	}
	v := verdictFor(t, verdicts, "tests")
	if v.Outcome != models.OutcomeNotAvailable {
		t.Errorf("outcome = %s, want not_available", v.Outcome)
	}
	if len(fake.ran) != 0 {
		t.Errorf("command ran despite failed tooling probe: %v", fake.ran)
	}

	// tests/build are mandatory; a missing mandatory check blocks.
	if r.FirstBlocking(verdicts) == nil {
		t.Error("expected mandatory not_available to block")
	}
}

func TestRunChecks_OptionalNotAvailableDoesNotBlock(t *testing.T) {
	eco := []Ecosystem{{
		Name:   "go",
		Marker: "go.mod",
		Checks: []Check{
			{Name: "tests", Command: []string{"go", "test"}, Mandatory: true},
			{Name: "lint", Command: []string{"linter"}},
		},
	}}
	fake := &fakeRunner{missing: map[string]bool{"linter": true}}
	r := NewRunner(fake, WithEcosystems(eco))

	verdicts, err := r.RunChecks(context.Background(), "builder", artifact(goProject(t)))
	if err != nil {
		t.Fatal(err)
	}
	if v := verdictFor(t, verdicts, "lint"); v.Outcome != models.OutcomeNotAvailable {
		t.Fatalf("lint outcome = %s, want not_available", v.Outcome)
	}
	if blocking := r.FirstBlocking(verdicts); blocking != nil {
		t.Errorf("optional not_available blocked acceptance: %v", blocking)
	}
}

func TestRunChecks_NoMarkerNoExecution(t *testing.T) {
	fake := &fakeRunner{}
	r := NewRunner(fake)

	verdicts, err := r.RunChecks(context.Background(), "builder", artifact(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	if len(verdicts) != 0 {
		t.Errorf("got %d verdicts with no project marker, want 0", len(verdicts))
	}
	if len(fake.ran) != 0 {
		t.Errorf("commands ran speculatively: %v", fake.ran)
	}
}

func TestTruncateLines(t *testing.T) {
	in := "1\n2\n3\n4\n5"
	out := truncateLines(in, 3)
	if !strings.HasPrefix(out, "1\n2\n3") {
		t.Errorf("truncateLines kept wrong lines: %q", out)
	}
	if !strings.Contains(out, "2 more lines") {
		t.Errorf("truncateLines missing continuation marker: %q", out)
	}
	if got := truncateLines("a\nb", 5); got != "a\nb" {
		t.Errorf("short input modified: %q", got)
	}
}
