// Package reply renders outgoing messages in the user's language. Contextual
// answers and manager drafts prefer the reasoning backend; templated
// fallbacks cover everything else and every backend failure.
package reply

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/concierge/internal/catalog"
	"github.com/linnemanlabs/concierge/internal/classify"
)

// Backend is the reasoning service used for free-form reply drafting.
type Backend interface {
	Configured() bool
	ChatJSON(ctx context.Context, system, user string, temperature float64, maxTokens int) (map[string]any, error)
}

// Generator produces user-facing replies and manager outreach drafts.
type Generator struct {
	backend  Backend
	disabled bool
	log      log.Logger
}

// New creates a Generator. backend may be nil; disabled forces template
// fallbacks even when a backend is configured.
func New(backend Backend, disabled bool, logger log.Logger) *Generator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Generator{backend: backend, disabled: disabled, log: logger}
}

// AnswerInput carries everything available for drafting a contextual answer.
type AnswerInput struct {
	UserText string
	Language string
	Profile  *catalog.Profile
	Intent   classify.Intent
	Matches  []catalog.Item
}

// DraftInput parameterizes manager outreach drafts.
type DraftInput struct {
	AudienceTag string
	Purpose     string
	Tone        string
	Language    string
}

const answerPrompt = "Write concise chat replies for talent management. Be factual, avoid " +
	"speculation, and stay in the user's language (ja or en). Return JSON: {reply:string}."

// Answer drafts a contextual reply for the user. Backend failures fall back
// to a templated answer built from the top knowledge match.
func (g *Generator) Answer(ctx context.Context, in AnswerInput) string {
	language := DetectLanguage(in.UserText, in.Language)

	if g.backendReady() {
		reply, err := g.answerLLM(ctx, in, language)
		if err == nil && reply != "" {
			return reply
		}
		if err != nil {
			g.log.Warn(ctx, "reply backend failed, using template", "error", err.Error())
		}
	}
	return fallbackAnswer(in, language)
}

func (g *Generator) answerLLM(ctx context.Context, in AnswerInput, language string) (string, error) {
	matches := in.Matches
	if matches == nil {
		matches = []catalog.Item{}
	}
	payload, err := json.Marshal(map[string]any{
		"language":          language,
		"user_message":      in.UserText,
		"profile":           in.Profile,
		"intent":            in.Intent,
		"knowledge_matches": matches,
	})
	if err != nil {
		return "", fmt.Errorf("marshal answer input: %w", err)
	}
	obj, err := g.backend.ChatJSON(ctx, answerPrompt, string(payload), 0.4, 320)
	if err != nil {
		return "", err
	}
	reply, _ := obj["reply"].(string)
	return strings.TrimSpace(reply), nil
}

// ClarifyingQuestion returns a templated follow-up question. It never calls
// the backend: a fixed question keeps the clarify branch deterministic.
func (g *Generator) ClarifyingQuestion(userText, preferred string) string {
	if DetectLanguage(userText, preferred) == LangJA {
		return "詳しく確認したいので、希望する仕事の種類・場所・開始時期を教えてください。"
	}
	return "To help accurately, could you share preferred job type, location, and start timing?"
}

// EscalationNotice returns the templated handoff message sent to the user
// when their inquiry is escalated to a manager.
func (g *Generator) EscalationNotice(userText, preferred string) string {
	if DetectLanguage(userText, preferred) == LangJA {
		return "確認が必要な内容のため、担当マネージャーに引き継ぎます。追ってご連絡します。"
	}
	return "This needs manager review, so I have escalated it. You will receive a follow-up soon."
}

const draftPrompt = "Create exactly 3 distinct chat message drafts for manager outreach. " +
	"Return JSON: {candidates:string[]}."

// Drafts returns exactly three distinct outreach drafts for a manager. The
// backend is preferred; it must supply at least three unique non-empty
// candidates or the templates take over.
func (g *Generator) Drafts(ctx context.Context, in DraftInput) []string {
	language := NormalizeLanguage(in.Language)

	if g.backendReady() {
		drafts, err := g.draftsLLM(ctx, in, language)
		if err == nil && len(drafts) == 3 {
			return drafts
		}
		if err != nil {
			g.log.Warn(ctx, "draft backend failed, using templates", "error", err.Error())
		}
	}
	return fallbackDrafts(in, language)
}

func (g *Generator) draftsLLM(ctx context.Context, in DraftInput, language string) ([]string, error) {
	payload, err := json.Marshal(map[string]any{
		"audience_tag": in.AudienceTag,
		"purpose":      in.Purpose,
		"tone":         in.Tone,
		"language":     language,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal draft input: %w", err)
	}
	obj, err := g.backend.ChatJSON(ctx, draftPrompt, string(payload), 0.7, 380)
	if err != nil {
		return nil, err
	}
	raw, _ := obj["candidates"].([]any)

	seen := make(map[string]bool, len(raw))
	unique := make([]string, 0, 3)
	for _, c := range raw {
		s, _ := c.(string)
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		unique = append(unique, s)
		if len(unique) == 3 {
			return unique, nil
		}
	}
	return nil, nil
}

func (g *Generator) backendReady() bool {
	return !g.disabled && g.backend != nil && g.backend.Configured()
}

func displayName(profile *catalog.Profile) string {
	if profile == nil || profile.DisplayName == "" {
		return "there"
	}
	return profile.DisplayName
}

func fallbackAnswer(in AnswerInput, language string) string {
	name := displayName(in.Profile)

	if len(in.Matches) == 0 {
		if language == LangJA {
			return fmt.Sprintf("%sさん、条件を確認して最適な案件を探します。希望エリア・ジャンル・時期を教えてください。", name)
		}
		return fmt.Sprintf("Hi %s, I can narrow this down for you. Please share your preferred location, genre, and timing.", name)
	}

	lead := in.Matches[0]
	deadline := ""
	if !lead.Deadline.IsZero() {
		deadline = lead.Deadline.Format("2006-01-02")
	}

	if language == LangJA {
		var b strings.Builder
		fmt.Fprintf(&b, "%sさん向けの候補です: %s", name, lead.Title)
		if lead.Location != "" {
			fmt.Fprintf(&b, " / エリア: %s", lead.Location)
		}
		if deadline != "" {
			fmt.Fprintf(&b, " / 締切: %s", deadline)
		}
		if lead.URL != "" {
			fmt.Fprintf(&b, " / 詳細: %s", lead.URL)
		}
		return b.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, this could match your profile: %s", name, lead.Title)
	if lead.Location != "" {
		fmt.Fprintf(&b, " | Location: %s", lead.Location)
	}
	if deadline != "" {
		fmt.Fprintf(&b, " | Deadline: %s", deadline)
	}
	if lead.URL != "" {
		fmt.Fprintf(&b, " | Details: %s", lead.URL)
	}
	return b.String()
}

func fallbackDrafts(in DraftInput, language string) []string {
	tag := in.AudienceTag
	if tag == "" {
		tag = "talent"
	}
	purpose := in.Purpose
	if purpose == "" {
		purpose = "information update"
	}
	tone := in.Tone
	if tone == "" {
		tone = "professional"
	}

	if language == LangJA {
		greeting := "ご連絡いたします"
		if tone == "friendly" {
			greeting = "こんにちは"
		}
		return []string{
			fmt.Sprintf("%s向けのお知らせです。%sについて、最新情報をご案内します。", tag, purpose),
			fmt.Sprintf("%s。%sの候補を整理したのでご確認ください。", greeting, purpose),
			fmt.Sprintf("%sに関するご提案です。条件に合う内容を優先して共有します。", purpose),
		}
	}

	greeting := "Hello"
	if tone == "friendly" {
		greeting = "Hi"
	}
	return []string{
		fmt.Sprintf("Quick update for %s: here is the latest on %s.", tag, purpose),
		fmt.Sprintf("%s, I shortlisted options for %s that may fit your profile.", greeting, purpose),
		fmt.Sprintf("Sharing a focused recommendation set for %s; priority options are listed first.", purpose),
	}
}
