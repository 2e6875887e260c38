package exec

import (
	"context"
	"errors"
	osexec "os/exec"
)

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

// NewRunner creates a new ExecRunner.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes a command and returns combined stdout/stderr output.
func (r *ExecRunner) Run(ctx context.Context, workDir string, name string, args ...string) ([]byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	return cmd.CombinedOutput()
}

// RunShell executes a shell command through "sh -c".
func (r *ExecRunner) RunShell(ctx context.Context, workDir string, command string) ([]byte, error) {
	return r.Run(ctx, workDir, "sh", "-c", command)
}

// LookPath reports whether the named tool resolves on PATH.
func (r *ExecRunner) LookPath(name string) error {
	_, err := osexec.LookPath(name)
	return err
}

// ExitCode extracts the process exit code from a Run error.
// Returns 0 for nil, the code for exit errors, and -1 when the process
// never produced one (start failure, signal kill).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return -1
}

// IsNotFound reports whether err means the command binary was missing.
func IsNotFound(err error) bool {
	return errors.Is(err, osexec.ErrNotFound)
}

// Verify ExecRunner implements CommandRunner at compile time.
var _ CommandRunner = (*ExecRunner)(nil)
