package orchestrator

import (
	"fmt"
	"strings"

	"github.com/podium-dev/podium/internal/memory"
	"github.com/podium-dev/podium/pkg/models"
)

// riskAreaPrefix marks lines in the failures namespace that flag an
// area as risky. The plan gate rejects plans touching flagged areas.
const riskAreaPrefix = "risk-area:"

// GateDecision is the plan gate's verdict on a submitted plan.
type GateDecision struct {
	// Approved is whether the plan may proceed.
	Approved bool
	// Reason explains a rejection. Sent back to the planning worker.
	Reason string
}

// PlanGate decides whether a plan task's deliverable is accepted. Plan
// tasks never complete via hook verdicts; this policy function is the
// only path to done for them. Rejection resets the plan to pending with
// a revision message; resubmission is unbounded but every cycle is
// logged.
type PlanGate struct {
	// maxFilesTouched rejects plans declaring more files than a single
	// implementation pass should handle.
	maxFilesTouched int
	// riskAreas are statically configured risky areas.
	riskAreas []string
	// store supplies dynamically flagged risk areas from the failures
	// namespace. May be nil.
	store *memory.Store
}

// NewPlanGate creates a PlanGate.
func NewPlanGate(maxFilesTouched int, riskAreas []string, store *memory.Store) *PlanGate {
	if maxFilesTouched <= 0 {
		maxFilesTouched = 25
	}
	return &PlanGate{
		maxFilesTouched: maxFilesTouched,
		riskAreas:       riskAreas,
		store:           store,
	}
}

// Decide applies the gate policy to a plan artifact.
// Critical-tier requests pass the risk-area rule because their shape
// already forces adversarial review of the same plan.
func (g *PlanGate) Decide(req *models.Request, plan models.Artifact) GateDecision {
	if len(plan.Paths) > g.maxFilesTouched {
		return GateDecision{
			Approved: false,
			Reason: fmt.Sprintf("plan touches %d files, above the %d-file threshold; split the work",
				len(plan.Paths), g.maxFilesTouched),
		}
	}

	if req.Tier != models.TierCritical {
		if area := g.flaggedArea(plan); area != "" {
			return GateDecision{
				Approved: false,
				Reason:   fmt.Sprintf("plan touches %q, an area flagged as risky; address the flag or escalate", area),
			}
		}
	}

	return GateDecision{Approved: true}
}

// flaggedArea returns the first risk area the plan mentions, checking
// static configuration and the failures namespace.
func (g *PlanGate) flaggedArea(plan models.Artifact) string {
	haystack := strings.ToLower(plan.Summary + "\n" + strings.Join(plan.Paths, "\n"))

	for _, area := range g.riskAreas {
		if area != "" && strings.Contains(haystack, strings.ToLower(area)) {
			return area
		}
	}
	for _, area := range g.storedRiskAreas() {
		if area != "" && strings.Contains(haystack, strings.ToLower(area)) {
			return area
		}
	}
	return ""
}

// storedRiskAreas reads "risk-area:" lines from the failures namespace.
func (g *PlanGate) storedRiskAreas() []string {
	if g.store == nil {
		return nil
	}
	doc, err := g.store.Read(memory.NamespaceFailures)
	if err != nil {
		return nil
	}
	var areas []string
	for _, line := range strings.Split(doc.Content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, riskAreaPrefix) {
			areas = append(areas, strings.TrimSpace(strings.TrimPrefix(line, riskAreaPrefix)))
		}
	}
	return areas
}
