package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/linnemanlabs/concierge/internal/catalog"
)

func TestHeuristic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		message        string
		wantIntent     Intent
		wantConfidence float64
		wantSensitive  bool
	}{
		{name: "empty", message: "   ", wantIntent: IntentUnknown, wantConfidence: 0.2},
		{name: "sensitive english", message: "I need a lawyer for this", wantIntent: IntentSensitive, wantConfidence: 0.2, wantSensitive: true},
		{name: "sensitive japanese", message: "ハラスメントについて相談したい", wantIntent: IntentSensitive, wantConfidence: 0.2, wantSensitive: true},
		{name: "sensitive beats opportunity", message: "harassment at my audition job", wantIntent: IntentSensitive, wantConfidence: 0.2, wantSensitive: true},
		{name: "opportunity english", message: "any audition openings", wantIntent: IntentOpportunityMatch, wantConfidence: 0.78},
		{name: "opportunity japanese", message: "オーディション情報ください", wantIntent: IntentOpportunityMatch, wantConfidence: 0.78},
		{name: "question mark", message: "is the deadline soon?", wantIntent: IntentFAQ, wantConfidence: 0.62},
		{name: "fullwidth question mark", message: "締め切りは来週ですか？", wantIntent: IntentFAQ, wantConfidence: 0.62},
		{name: "question keyword", message: "tell me how to apply", wantIntent: IntentFAQ, wantConfidence: 0.62},
		{name: "short", message: "hmm ok", wantIntent: IntentUnknown, wantConfidence: 0.3},
		{name: "general", message: "thinking about next steps lately", wantIntent: IntentNeedsClarification, wantConfidence: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Heuristic(tt.message)
			if got.Intent != tt.wantIntent {
				t.Errorf("intent = %q, want %q", got.Intent, tt.wantIntent)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
			if got.Sensitive != tt.wantSensitive {
				t.Errorf("sensitive = %v, want %v", got.Sensitive, tt.wantSensitive)
			}
			if got.Source != SourceHeuristic {
				t.Errorf("source = %q, want %q", got.Source, SourceHeuristic)
			}
			if got.Degraded {
				t.Error("plain heuristic result should not be degraded")
			}
		})
	}
}

type fakeBackend struct {
	configured bool
	obj        map[string]any
	err        error
	gotUser    string
}

func (f *fakeBackend) Configured() bool { return f.configured }

func (f *fakeBackend) ChatJSON(_ context.Context, _, user string, _ float64, _ int) (map[string]any, error) {
	f.gotUser = user
	return f.obj, f.err
}

func TestClassifier_UsesBackend(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		configured: true,
		obj: map[string]any{
			"intent":       "opportunity_match",
			"confidence":   0.91,
			"is_sensitive": false,
			"reason":       "asks about castings",
		},
	}
	c := New(backend, false, nil)

	got := c.Classify(context.Background(), Input{
		Message: "any castings this month?",
		Profile: &catalog.Profile{UserID: "U1", InterestTags: []string{"audition"}},
	})
	if got.Intent != IntentOpportunityMatch || got.Confidence != 0.91 {
		t.Errorf("unexpected result: %+v", got)
	}
	if got.Source != SourceLLM || got.Degraded {
		t.Errorf("source = %q degraded = %v, want llm path", got.Source, got.Degraded)
	}
	if !strings.Contains(backend.gotUser, "audition") {
		t.Errorf("profile not forwarded to backend: %q", backend.gotUser)
	}
}

func TestClassifier_ClampsBackendConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  any
		want float64
	}{
		{name: "above one", raw: 1.7, want: 1},
		{name: "below zero", raw: -0.3, want: 0},
		{name: "non numeric", raw: "high", want: 0.5},
		{name: "missing", raw: nil, want: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			backend := &fakeBackend{
				configured: true,
				obj:        map[string]any{"intent": "faq", "confidence": tt.raw},
			}
			got := New(backend, false, nil).Classify(context.Background(), Input{Message: "when?"})
			if got.Confidence != tt.want {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.want)
			}
		})
	}
}

func TestClassifier_FallsBackOnBackendError(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{configured: true, err: errors.New("rate limited")}
	got := New(backend, false, nil).Classify(context.Background(), Input{Message: "any auditions?"})

	if got.Intent != IntentOpportunityMatch {
		t.Errorf("intent = %q, want heuristic opportunity_match", got.Intent)
	}
	if !got.Degraded {
		t.Error("result should be marked degraded")
	}
	if !strings.Contains(got.Reason, "rate limited") {
		t.Errorf("reason should carry the failure: %q", got.Reason)
	}
	if got.Source != SourceHeuristic {
		t.Errorf("source = %q, want heuristic", got.Source)
	}
}

func TestClassifier_FallsBackOnInvalidIntent(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		configured: true,
		obj:        map[string]any{"intent": "small_talk", "confidence": 0.9},
	}
	got := New(backend, false, nil).Classify(context.Background(), Input{Message: "is the school open?"})

	if got.Intent != IntentFAQ {
		t.Errorf("intent = %q, want heuristic faq", got.Intent)
	}
	if !got.Degraded || !strings.Contains(got.Reason, "small_talk") {
		t.Errorf("expected degraded result naming the bad intent, got %+v", got)
	}
}

func TestClassifier_SensitiveFlagFollowsIntent(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		configured: true,
		obj:        map[string]any{"intent": "sensitive", "confidence": 0.4},
	}
	got := New(backend, false, nil).Classify(context.Background(), Input{Message: "contract question"})
	if !got.Sensitive {
		t.Error("sensitive intent must set the sensitive flag")
	}
}

func TestClassifier_DisabledSkipsBackend(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{configured: true, obj: map[string]any{"intent": "faq"}}
	got := New(backend, true, nil).Classify(context.Background(), Input{Message: "any auditions?"})
	if got.Source != SourceHeuristic {
		t.Errorf("source = %q, want heuristic when disabled", got.Source)
	}
	if backend.gotUser != "" {
		t.Error("backend should not be called when disabled")
	}
}
