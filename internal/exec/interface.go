// Package exec provides an interface for running external commands.
package exec

import "context"

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr output.
	// The working directory is set to workDir if non-empty. The returned
	// error is the raw process error; use ExitCode to classify it.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// RunShell executes a shell command through "sh -c".
	RunShell(ctx context.Context, workDir string, command string) (output []byte, err error)

	// LookPath reports whether a tool is resolvable on PATH. Used to
	// distinguish "check failed" from "check tooling not installed".
	LookPath(name string) error
}
