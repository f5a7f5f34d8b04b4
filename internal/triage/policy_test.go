package triage

import (
	"math"
	"testing"

	"github.com/linnemanlabs/concierge/internal/catalog"
	"github.com/linnemanlabs/concierge/internal/classify"
)

func items(n int) []catalog.Item {
	out := make([]catalog.Item, n)
	for i := range out {
		out[i] = catalog.Item{ID: "K", Title: "t"}
	}
	return out
}

func TestComputeConfidence(t *testing.T) {
	t.Parallel()

	profile := &catalog.Profile{UserID: "U1"}
	tests := []struct {
		name    string
		c       classify.Result
		matches []catalog.Item
		profile *catalog.Profile
		want    float64
	}{
		{
			name:    "faq with matches and profile",
			c:       classify.Result{Intent: classify.IntentFAQ, Confidence: 0.62},
			matches: items(2),
			profile: profile,
			want:    0.78, // 0.62 + 2*0.08
		},
		{
			name:    "match bonus capped at three",
			c:       classify.Result{Intent: classify.IntentOpportunityMatch, Confidence: 0.5},
			matches: items(5),
			profile: profile,
			want:    0.74, // 0.5 + 3*0.08
		},
		{
			name:    "unknown penalty and no matches",
			c:       classify.Result{Intent: classify.IntentUnknown, Confidence: 0.3},
			profile: profile,
			want:    0.07, // 0.3 - 0.15 - 0.08
		},
		{
			name:    "missing profile penalty",
			c:       classify.Result{Intent: classify.IntentFAQ, Confidence: 0.62},
			matches: items(1),
			want:    0.65, // 0.62 + 0.08 - 0.05
		},
		{
			name:    "sensitive cap applies before match bonus",
			c:       classify.Result{Intent: classify.IntentSensitive, Confidence: 0.9, Sensitive: true},
			matches: items(3),
			profile: profile,
			want:    0.44, // min(0.9,0.2) + 3*0.08
		},
		{
			name:    "sensitive flag alone caps",
			c:       classify.Result{Intent: classify.IntentFAQ, Confidence: 0.8, Sensitive: true},
			profile: profile,
			want:    0.12, // min(0.8,0.2) - 0.08
		},
		{
			name: "clamped at zero",
			c:    classify.Result{Intent: classify.IntentUnknown, Confidence: 0.1},
			want: 0, // 0.1 - 0.15 - 0.08 - 0.05 < 0
		},
		{
			name:    "clamped at one",
			c:       classify.Result{Intent: classify.IntentOpportunityMatch, Confidence: 0.95},
			matches: items(3),
			profile: profile,
			want:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ComputeConfidence(tt.c, tt.matches, tt.profile)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ComputeConfidence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeConfidence_SensitiveNeverExceedsLowBand(t *testing.T) {
	t.Parallel()

	// With any match count and profile presence, a sensitive message can gain
	// at most the 3-match bonus over the 0.2 cap.
	for n := 0; n <= 6; n++ {
		for _, p := range []*catalog.Profile{nil, {UserID: "U"}} {
			got := ComputeConfidence(classify.Result{Intent: classify.IntentSensitive, Confidence: 1, Sensitive: true}, items(n), p)
			if got > 0.44 {
				t.Errorf("matches=%d profile=%v: confidence %v above the sensitive band", n, p != nil, got)
			}
		}
	}
}

func TestDecideAction(t *testing.T) {
	t.Parallel()

	defaults := DefaultThresholds()
	tests := []struct {
		name             string
		score            float64
		intent           classify.Intent
		sensitive        bool
		alreadyClarified bool
		want             Action
	}{
		{name: "sensitive flag escalates regardless of score", score: 0.99, intent: classify.IntentFAQ, sensitive: true, want: ActionEscalate},
		{name: "sensitive intent escalates", score: 0.99, intent: classify.IntentSensitive, want: ActionEscalate},
		{name: "at answer threshold", score: 0.75, intent: classify.IntentFAQ, want: ActionAnswer},
		{name: "above answer threshold", score: 0.9, intent: classify.IntentOpportunityMatch, want: ActionAnswer},
		{name: "mid band clarifies", score: 0.5, intent: classify.IntentNeedsClarification, want: ActionClarify},
		{name: "at clarify threshold", score: 0.45, intent: classify.IntentFAQ, want: ActionClarify},
		{name: "mid band already clarified escalates", score: 0.5, intent: classify.IntentNeedsClarification, alreadyClarified: true, want: ActionEscalate},
		{name: "below clarify escalates", score: 0.3, intent: classify.IntentUnknown, want: ActionEscalate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := DecideAction(tt.score, tt.intent, tt.sensitive, tt.alreadyClarified, defaults)
			if got != tt.want {
				t.Errorf("DecideAction = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecideAction_CustomThresholds(t *testing.T) {
	t.Parallel()

	strict := Thresholds{Answer: 0.9, Clarify: 0.6}
	if got := DecideAction(0.8, classify.IntentFAQ, false, false, strict); got != ActionClarify {
		t.Errorf("0.8 under strict thresholds = %q, want clarify", got)
	}
	if got := DecideAction(0.5, classify.IntentFAQ, false, false, strict); got != ActionEscalate {
		t.Errorf("0.5 under strict thresholds = %q, want escalate", got)
	}
}
