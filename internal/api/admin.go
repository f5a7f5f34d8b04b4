package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/concierge/internal/reply"
)

const maxPushLength = 1000

type pushRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (a *API) handlePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}

	to := strings.TrimSpace(req.To)
	text := strings.TrimSpace(req.Text)
	if to == "" || text == "" {
		http.Error(w, `{"error":"invalid_payload","message":"to and text are required"}`, http.StatusBadRequest)
		return
	}
	if len([]rune(text)) > maxPushLength {
		http.Error(w, `{"error":"invalid_payload","message":"text must be <= 1000 characters"}`, http.StatusBadRequest)
		return
	}

	res, err := a.sender.PushText(r.Context(), to, text)
	if err != nil {
		a.logger.Error(r.Context(), err, "admin push failed", "to", to)
		http.Error(w, `{"error":"line_push_failed"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":      true,
		"to":      to,
		"skipped": res.Skipped,
	})
}

type syncRequest struct {
	Source string `json:"source"`
}

func (a *API) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}

	source := "csv"
	if req.Source == "sheet" {
		source = "sheet"
	}

	summary, err := a.syncer.Sync(r.Context(), source)
	if err != nil {
		a.logger.Error(r.Context(), err, "catalog sync failed", "source", source)
		http.Error(w, `{"error":"sync_failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (a *API) handleCleanup(w http.ResponseWriter, r *http.Request) {
	summary, err := a.retention.Cleanup(r.Context(), time.Now())
	if err != nil {
		a.logger.Error(r.Context(), err, "retention cleanup failed")
		http.Error(w, `{"error":"cleanup_failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

type draftRequest struct {
	AudienceTag string `json:"audience_tag"`
	Purpose     string `json:"purpose"`
	Tone        string `json:"tone"`
	Language    string `json:"language"`
}

func (a *API) handleDraftSentences(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}

	in := reply.DraftInput{
		AudienceTag: defaultString(req.AudienceTag, "general"),
		Purpose:     defaultString(req.Purpose, "information update"),
		Tone:        defaultString(req.Tone, "professional"),
		Language:    defaultString(req.Language, "ja"),
	}

	candidates := a.drafter.Drafts(r.Context(), in)
	// pad to three in the unlikely case the generator came up short
	for i := len(candidates); i < 3; i++ {
		candidates = append(candidates, fmt.Sprintf("%s update (%d)", in.Purpose, i+1))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": candidates[:3],
	})
}

func defaultString(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
