package models

// ConcurrencyMode describes how a worker occupies the orchestrator.
type ConcurrencyMode string

const (
	// ModeForeground blocks the dispatching path until the worker delivers.
	// Independent subgraphs are unaffected.
	ModeForeground ConcurrencyMode = "foreground"
	// ModeBackground lets the orchestrator continue while the worker runs.
	ModeBackground ConcurrencyMode = "background"
)

// Valid returns true if the mode is a known value.
func (m ConcurrencyMode) Valid() bool {
	return m == ModeForeground || m == ModeBackground
}

// WorkerSpec declares a worker role available for dispatch.
// Specs are registered once at startup and are immutable afterwards.
type WorkerSpec struct {
	// Name uniquely identifies the role within the registry.
	Name string `json:"name" yaml:"name"`
	// CapabilityTags are the domains this role can work in (e.g. "backend").
	CapabilityTags []string `json:"capability_tags" yaml:"capability_tags"`
	// Mode is the role's concurrency mode.
	Mode ConcurrencyMode `json:"mode" yaml:"mode"`
	// CostTier orders roles for selection tie-breaks. Lower is cheaper.
	CostTier int `json:"cost_tier" yaml:"cost_tier"`
	// Command, if set, is the shell command a script-backed worker runs.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
}

// CanHandle reports whether the role's capability tags intersect tags.
// An empty tag set matches any role.
func (w WorkerSpec) CanHandle(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range w.CapabilityTags {
			if want == have {
				return true
			}
		}
	}
	return false
}

// Assignment is what a worker receives when a task is dispatched to it.
type Assignment struct {
	// TaskID is the graph task being worked.
	TaskID string `json:"task_id"`
	// Description is the task description.
	Description string `json:"description"`
	// Context is an opaque payload assembled by the orchestrator
	// (plan content, prior findings, memory excerpts).
	Context string `json:"context,omitempty"`
}

// Artifact describes what a worker produced for an assignment.
// How the artifact was produced is outside the orchestrator's contract.
type Artifact struct {
	// TaskID is the task the artifact belongs to.
	TaskID string `json:"task_id"`
	// Root is the directory the artifact lives under.
	Root string `json:"root"`
	// Paths lists files the worker declares it touched, relative to Root.
	Paths []string `json:"paths,omitempty"`
	// Summary is the worker's own account of the work.
	Summary string `json:"summary,omitempty"`
	// Reconsider is set by adversary reviews that found a high-severity
	// problem. It always escalates the enclosing request.
	Reconsider bool `json:"reconsider,omitempty"`
}
