package worker

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/podium-dev/podium/internal/exec"
	"github.com/podium-dev/podium/pkg/models"
)

// DefaultFactory builds script workers for specs that declare a command
// and Claude workers for the rest.
type DefaultFactory struct {
	// Runner invokes script worker commands.
	Runner exec.CommandRunner
	// WorkDir is the directory script workers run in.
	WorkDir string
	// Claude holds API settings for command-less specs.
	Claude ClaudeConfig
}

// NewWorker implements Factory.
func (f *DefaultFactory) NewWorker(spec models.WorkerSpec) (Worker, error) {
	if spec.Command != "" {
		return NewScriptWorker(spec, f.Runner, f.WorkDir)
	}
	return NewClaudeWorker(spec, f.Claude)
}

// ClaudeConfigFrom maps flat configuration values into a ClaudeConfig.
func ClaudeConfigFrom(apiKey, model string, useBedrock bool, awsRegion, awsProfile string) ClaudeConfig {
	return ClaudeConfig{
		Model:         anthropic.Model(model),
		APIKey:        apiKey,
		UseAWSBedrock: useBedrock,
		AWSRegion:     awsRegion,
		AWSProfile:    awsProfile,
	}
}
