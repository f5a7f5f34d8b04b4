// Package classify determines the intent of an incoming inquiry. The primary
// path asks an external reasoning backend; any failure or out-of-set answer
// degrades to a deterministic keyword heuristic, so classification never
// returns an error.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/concierge/internal/catalog"
	"github.com/linnemanlabs/concierge/internal/memory"
)

// Intent is the closed set of inquiry categories the pipeline routes on.
type Intent string

const (
	IntentFAQ                Intent = "faq"
	IntentOpportunityMatch   Intent = "opportunity_match"
	IntentNeedsClarification Intent = "needs_clarification"
	IntentSensitive          Intent = "sensitive"
	IntentUnknown            Intent = "unknown"

	// IntentWhoami is an internal utility intent, detected upstream of the
	// classifier for "whoami" commands. It is never produced by Classify.
	IntentWhoami Intent = "utility_whoami"
)

var validIntents = map[Intent]bool{
	IntentFAQ:                true,
	IntentOpportunityMatch:   true,
	IntentNeedsClarification: true,
	IntentSensitive:          true,
	IntentUnknown:            true,
}

// Source identifies which path produced a classification.
const (
	SourceLLM       = "llm"
	SourceHeuristic = "heuristic"
)

// Result is the outcome of classifying one message.
type Result struct {
	Intent     Intent
	Confidence float64
	Sensitive  bool
	Reason     string
	// Degraded is true when the heuristic answered because the reasoning
	// backend failed or returned an intent outside the closed set.
	Degraded bool
	Source   string
}

// Input carries the message plus whatever context is available for it.
type Input struct {
	Message string
	Profile *catalog.Profile
	Recent  []memory.Entry
}

// Backend is the reasoning service the classifier prefers when configured.
type Backend interface {
	Configured() bool
	ChatJSON(ctx context.Context, system, user string, temperature float64, maxTokens int) (map[string]any, error)
}

// Classifier routes to the backend when available and falls back to the
// keyword heuristic otherwise.
type Classifier struct {
	backend  Backend
	disabled bool
	log      log.Logger
}

// New creates a Classifier. backend may be nil; disabled forces the heuristic
// path even when a backend is configured.
func New(backend Backend, disabled bool, logger log.Logger) *Classifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Classifier{backend: backend, disabled: disabled, log: logger}
}

const systemPrompt = "Classify talent-management chat inquiries. Return JSON with intent, " +
	"confidence (0-1), is_sensitive (bool), reason. intent must be one of faq, " +
	"opportunity_match, needs_clarification, sensitive, unknown."

// Classify never returns an error: on any backend failure it answers with the
// heuristic, marking the result degraded and appending the failure reason.
func (c *Classifier) Classify(ctx context.Context, in Input) Result {
	if c.disabled || c.backend == nil || !c.backend.Configured() {
		return Heuristic(in.Message)
	}

	res, err := c.classifyLLM(ctx, in)
	if err != nil {
		c.log.Warn(ctx, "classifier backend failed, using heuristic", "error", err.Error())
		fallback := Heuristic(in.Message)
		fallback.Reason = fmt.Sprintf("Fallback after LLM error: %s", err)
		fallback.Degraded = true
		return fallback
	}
	return res
}

func (c *Classifier) classifyLLM(ctx context.Context, in Input) (Result, error) {
	recent := make([]map[string]string, 0, len(in.Recent))
	for _, e := range in.Recent {
		recent = append(recent, map[string]string{
			"user":      e.UserText,
			"assistant": e.AssistantText,
			"intent":    e.Intent,
		})
	}
	payload, err := json.Marshal(map[string]any{
		"message":        in.Message,
		"profile":        in.Profile,
		"recent_context": recent,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal classifier input: %w", err)
	}

	obj, err := c.backend.ChatJSON(ctx, systemPrompt, string(payload), 0, 220)
	if err != nil {
		return Result{}, err
	}

	intent, _ := obj["intent"].(string)
	if !validIntents[Intent(intent)] {
		return Result{}, fmt.Errorf("backend returned intent %q outside the closed set", intent)
	}

	reason, _ := obj["reason"].(string)
	if reason == "" {
		reason = "LLM classification"
	}
	sensitive, _ := obj["is_sensitive"].(bool)

	return Result{
		Intent:     Intent(intent),
		Confidence: clampConfidence(obj["confidence"], 0.5),
		Sensitive:  sensitive || Intent(intent) == IntentSensitive,
		Reason:     reason,
		Source:     SourceLLM,
	}, nil
}

func clampConfidence(value any, fallback float64) float64 {
	f, ok := value.(float64)
	if !ok {
		return fallback
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

var sensitiveKeywords = []string{
	"legal", "lawyer", "contract dispute", "payment issue", "lawsuit",
	"harassment", "abuse",
	"違法", "訴訟", "弁護士", "契約トラブル", "支払いトラブル", "ハラスメント",
}

var opportunityKeywords = []string{
	"job", "audition", "school", "casting", "enrollment", "work",
	"仕事", "求人", "オーディション", "学校", "スクール", "出演", "案件",
}

var questionKeywords = []string{
	"how", "when", "where", "can i", "could", "what", "help",
	"どう", "いつ", "どこ", "できますか", "教えて", "可能", "ですか",
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// Heuristic classifies a message by keyword rules alone. Sensitive terms are
// checked before anything else so a sensitive message is never misrouted.
func Heuristic(message string) Result {
	text := strings.ToLower(strings.TrimSpace(message))

	switch {
	case text == "":
		return heuristicResult(IntentUnknown, 0.2, false, "Empty message")
	case containsAny(text, sensitiveKeywords):
		return heuristicResult(IntentSensitive, 0.2, true, "Sensitive keyword detected")
	case containsAny(text, opportunityKeywords):
		return heuristicResult(IntentOpportunityMatch, 0.78, false, "Opportunity keyword matched")
	case strings.ContainsAny(text, "?？") || containsAny(text, questionKeywords):
		return heuristicResult(IntentFAQ, 0.62, false, "Question-like inquiry")
	case len([]rune(text)) < 8:
		return heuristicResult(IntentUnknown, 0.3, false, "Message too short for intent certainty")
	default:
		return heuristicResult(IntentNeedsClarification, 0.5, false, "General intent requires clarification")
	}
}

func heuristicResult(intent Intent, confidence float64, sensitive bool, reason string) Result {
	return Result{
		Intent:     intent,
		Confidence: confidence,
		Sensitive:  sensitive,
		Reason:     reason,
		Source:     SourceHeuristic,
	}
}
