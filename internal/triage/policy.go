package triage

import (
	"github.com/linnemanlabs/concierge/internal/catalog"
	"github.com/linnemanlabs/concierge/internal/classify"
)

// Thresholds are the confidence cutoffs for the answer and clarify actions.
type Thresholds struct {
	Answer  float64
	Clarify float64
}

// DefaultThresholds returns the stock policy cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{Answer: 0.75, Clarify: 0.45}
}

// ComputeConfidence combines the classification confidence with knowledge
// match and profile signals. The sensitivity cap applies before the match and
// profile adjustments; the [0,1] clamp is last.
func ComputeConfidence(c classify.Result, matches []catalog.Item, profile *catalog.Profile) float64 {
	score := c.Confidence

	if c.Intent == classify.IntentUnknown {
		score -= 0.15
	}
	if c.Intent == classify.IntentSensitive || c.Sensitive {
		score = min(score, 0.2)
	}

	if len(matches) > 0 {
		score += float64(min(len(matches), 3)) * 0.08
	} else {
		score -= 0.08
	}

	if profile == nil {
		score -= 0.05
	}

	return max(0, min(1, score))
}

// DecideAction maps a confidence score to an action. Sensitive inquiries
// always escalate; a user who was already asked to clarify is not asked
// again.
func DecideAction(score float64, intent classify.Intent, sensitive, alreadyClarified bool, t Thresholds) Action {
	if sensitive || intent == classify.IntentSensitive {
		return ActionEscalate
	}
	if score >= t.Answer {
		return ActionAnswer
	}
	if score >= t.Clarify && !alreadyClarified {
		return ActionClarify
	}
	return ActionEscalate
}
