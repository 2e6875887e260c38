package models

import "time"

// Outcome classifies the result of a single mechanical check.
type Outcome string

const (
	// OutcomePass means the check command exited zero.
	OutcomePass Outcome = "pass"
	// OutcomeFail means the check command exited nonzero or timed out.
	OutcomeFail Outcome = "fail"
	// OutcomeNotAvailable means the check tooling was not found.
	// Optional checks with this outcome do not block acceptance.
	OutcomeNotAvailable Outcome = "not_available"
)

// Valid returns true if the outcome is a known value.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePass, OutcomeFail, OutcomeNotAvailable:
		return true
	default:
		return false
	}
}

// VerdictDetail carries the minimum evidence needed to act on a verdict.
// Never the full raw log.
type VerdictDetail struct {
	// ExitCode is the check command's exit code. -1 if it never ran.
	ExitCode int `json:"exit_code"`
	// Excerpt is the first lines of combined output, truncated.
	Excerpt string `json:"excerpt,omitempty"`
	// Reason is a short machine-set explanation ("timeout", "tool not found").
	Reason string `json:"reason,omitempty"`
}

// Verdict is the result of one Hook Runner check invocation.
type Verdict struct {
	// ID uniquely identifies the verdict. The orchestrator correlates
	// verdicts to tasks by this ID, so duplicate delivery is harmless.
	ID string `json:"id"`
	// TaskID is the graph task whose artifacts were checked.
	TaskID string `json:"task_id"`
	// WorkerRole is the role that produced the checked artifacts.
	WorkerRole string `json:"worker_role"`
	// CheckName names the check ("tests", "types", "lint", "build", ...).
	CheckName string `json:"check_name"`
	// Outcome is the classification of the check result.
	Outcome Outcome `json:"outcome"`
	// Detail is the evidence behind the outcome.
	Detail VerdictDetail `json:"detail"`
	// Duration is how long the check ran.
	Duration time.Duration `json:"duration"`
}

// Blocking reports whether this verdict prevents acceptance.
// A fail always blocks; not_available blocks only mandatory checks,
// which the caller decides.
func (v Verdict) Blocking(mandatory bool) bool {
	switch v.Outcome {
	case OutcomeFail:
		return true
	case OutcomeNotAvailable:
		return mandatory
	default:
		return false
	}
}
