package orchestrator

import (
	"strings"

	"github.com/podium-dev/podium/pkg/models"
)

// TierKeywords is the single source of truth for classification keywords.
type TierKeywords struct {
	// Trivial keywords indicate requests that resolve without any tasks.
	Trivial []string

	// Risk keywords force the critical tier: irreversible operations,
	// auth and payment surfaces, data destruction.
	Risk []string
}

// DefaultTierKeywords returns the authoritative keyword mappings.
var DefaultTierKeywords = TierKeywords{
	Trivial: []string{
		"typo",
		"rename",
		"formatting",
		"comment",
		"whitespace",
	},
	Risk: []string{
		"irreversible",
		"auth",
		"authentication",
		"payment",
		"billing",
		"security",
		"migration",
		"drop table",
		"delete all",
		"production",
		"secrets",
	},
}

// Classifier assigns a complexity tier to a request. Classification is
// a pure, total function of the description and metadata: every input
// maps to exactly one tier and repeated calls always agree.
type Classifier struct {
	keywords TierKeywords
	// ambiguityThreshold is the confidence below which a request is
	// classified ambiguous and forced through a plan gate.
	ambiguityThreshold float64
	// complexFileThreshold is the file-count estimate above which a
	// request stops being simple.
	complexFileThreshold int
}

// NewClassifier creates a Classifier with default keywords and thresholds.
func NewClassifier() *Classifier {
	return &Classifier{
		keywords:             DefaultTierKeywords,
		ambiguityThreshold:   0.5,
		complexFileThreshold: 3,
	}
}

// Classify returns the tier for a request. Signals are checked in a
// fixed precedence order:
//  1. Risk keyword or override of a prior decision -> critical
//  2. Confidence below the ambiguity threshold   -> ambiguous
//  3. Trivial keyword and at most one file        -> trivial
//  4. File estimate within the simple threshold   -> simple
//  5. Everything else                              -> complex
func (c *Classifier) Classify(description string, md models.RequestMetadata) models.Tier {
	lower := strings.ToLower(description)

	if md.OverridesPriorDecision {
		return models.TierCritical
	}
	for _, keyword := range c.keywords.Risk {
		if strings.Contains(lower, keyword) {
			return models.TierCritical
		}
	}

	if md.Confidence < c.ambiguityThreshold {
		return models.TierAmbiguous
	}

	if md.FileCountEstimate <= 1 {
		for _, keyword := range c.keywords.Trivial {
			if strings.Contains(lower, keyword) {
				return models.TierTrivial
			}
		}
	}

	if md.FileCountEstimate <= c.complexFileThreshold {
		return models.TierSimple
	}
	return models.TierComplex
}
