package orchestrator

import (
	"testing"

	"github.com/podium-dev/podium/pkg/models"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name        string
		description string
		md          models.RequestMetadata
		want        models.Tier
	}{
		{
			name:        "trivial typo fix",
			description: "Fix typo in README",
			md:          models.RequestMetadata{FileCountEstimate: 1, Confidence: 1.0},
			want:        models.TierTrivial,
		},
		{
			name:        "trivial keyword but many files is not trivial",
			description: "Fix typo across the codebase",
			md:          models.RequestMetadata{FileCountEstimate: 12, Confidence: 1.0},
			want:        models.TierComplex,
		},
		{
			name:        "small change is simple",
			description: "Add a --verbose flag",
			md:          models.RequestMetadata{FileCountEstimate: 2, Confidence: 0.9},
			want:        models.TierSimple,
		},
		{
			name:        "many files is complex",
			description: "Extract the storage layer into its own package",
			md:          models.RequestMetadata{FileCountEstimate: 8, Confidence: 0.9},
			want:        models.TierComplex,
		},
		{
			name:        "low confidence is ambiguous",
			description: "Make it faster",
			md:          models.RequestMetadata{FileCountEstimate: 2, Confidence: 0.2},
			want:        models.TierAmbiguous,
		},
		{
			name:        "risk keyword is critical",
			description: "Change the authentication flow",
			md:          models.RequestMetadata{FileCountEstimate: 1, Confidence: 1.0},
			want:        models.TierCritical,
		},
		{
			name:        "risk beats ambiguity",
			description: "Maybe touch the payment provider",
			md:          models.RequestMetadata{FileCountEstimate: 1, Confidence: 0.1},
			want:        models.TierCritical,
		},
		{
			name:        "override of prior decision is critical",
			description: "Rename the config package",
			md:          models.RequestMetadata{FileCountEstimate: 1, Confidence: 1.0, OverridesPriorDecision: true},
			want:        models.TierCritical,
		},
		{
			name:        "risk keyword beats trivial keyword",
			description: "Fix typo in the billing page",
			md:          models.RequestMetadata{FileCountEstimate: 1, Confidence: 1.0},
			want:        models.TierCritical,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.description, tc.md)
			if got != tc.want {
				t.Errorf("Classify(%q) = %s, want %s", tc.description, got, tc.want)
			}
			// Deterministic: a second call must agree.
			if again := c.Classify(tc.description, tc.md); again != got {
				t.Errorf("Classify not deterministic: %s then %s", got, again)
			}
		})
	}
}
