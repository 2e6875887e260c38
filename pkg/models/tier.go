package models

// Tier is the complexity classification of a request. The tier decides
// the worker set and the shape of the task graph built for the request.
type Tier string

const (
	// TierTrivial requests create no tasks and resolve immediately.
	TierTrivial Tier = "trivial"
	// TierSimple requests build a linear scan -> implement -> verify chain.
	TierSimple Tier = "simple"
	// TierComplex requests fan out behind a gating plan-approval node.
	TierComplex Tier = "complex"
	// TierAmbiguous requests need clarification before implementation;
	// they take the complex shape with a mandatory plan gate.
	TierAmbiguous Tier = "ambiguous"
	// TierCritical requests add advocate and adversary review nodes that
	// must both complete before implementation is eligible.
	TierCritical Tier = "critical"
)

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	switch t {
	case TierTrivial, TierSimple, TierComplex, TierAmbiguous, TierCritical:
		return true
	default:
		return false
	}
}
