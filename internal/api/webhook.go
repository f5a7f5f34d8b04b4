package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/concierge/internal/line"
	"github.com/linnemanlabs/concierge/internal/triage"
)

// webhookRequest is the LINE webhook payload shape.
type webhookRequest struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type           string `json:"type"`
	WebhookEventID string `json:"webhookEventId"`
	Timestamp      int64  `json:"timestamp"` // milliseconds
	ReplyToken     string `json:"replyToken"`
	Source         struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

// webhookSummary is the batch outcome returned to LINE.
type webhookSummary struct {
	Received   int                  `json:"received"`
	Replied    int                  `json:"replied"`
	Escalated  int                  `json:"escalated"`
	Duplicates int                  `json:"duplicates"`
	Ignored    int                  `json:"ignored"`
	Errors     int                  `json:"errors"`
	Results    []webhookEventResult `json:"results"`
}

type webhookEventResult struct {
	EventID    string  `json:"eventId"`
	UserID     string  `json:"userId,omitempty"`
	Status     string  `json:"status"`
	Action     string  `json:"action,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Message    string  `json:"message,omitempty"`
}

func (a *API) handleWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"invalid_body"}`, http.StatusBadRequest)
		return
	}

	if a.cfg.ChannelSecret != "" {
		if !line.VerifySignature(rawBody, r.Header.Get("x-line-signature"), a.cfg.ChannelSecret) {
			http.Error(w, `{"error":"invalid_signature"}`, http.StatusUnauthorized)
			return
		}
	} else if !a.cfg.AllowUnsignedWebhook {
		http.Error(w, `{"error":"configuration_incomplete"}`, http.StatusServiceUnavailable)
		return
	}

	var req webhookRequest
	if err := json.Unmarshal(rawBody, &req); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}

	summary := webhookSummary{
		Received: len(req.Events),
		Results:  []webhookEventResult{},
	}

	for _, ev := range req.Events {
		a.logger.Info(r.Context(), "webhook event",
			"event_type", ev.Type,
			"user_id", ev.Source.UserID,
			"message_type", ev.Message.Type,
			"event_id", ev.WebhookEventID,
		)

		if ev.Type != "message" || ev.Message.Type != "text" {
			summary.Ignored++
			continue
		}

		eventID := ev.WebhookEventID
		if eventID == "" {
			eventID = ev.Message.ID
		}
		// A missing or spoofed timestamp decodes to 0; never let 1970
		// into the pipeline or expired knowledge items come back alive.
		ts := time.Now()
		if ev.Timestamp > 0 {
			ts = time.UnixMilli(ev.Timestamp)
		}
		result, err := a.svc.Handle(r.Context(), triage.Event{
			ID:         eventID,
			UserID:     ev.Source.UserID,
			ReplyToken: ev.ReplyToken,
			Text:       ev.Message.Text,
			Timestamp:  ts,
		})
		if err != nil {
			summary.Errors++
			summary.Results = append(summary.Results, webhookEventResult{
				EventID: eventID,
				Status:  "error",
				Message: err.Error(),
			})
			continue
		}

		switch result.Status {
		case triage.StatusDuplicate:
			summary.Duplicates++
		case triage.StatusIgnored:
			summary.Ignored++
		case triage.StatusProcessed:
			if result.Action == triage.ActionEscalate {
				summary.Escalated++
			}
			if result.ReplyText != "" && ev.ReplyToken != "" {
				if _, err := a.sender.ReplyText(r.Context(), ev.ReplyToken, result.ReplyText); err != nil {
					a.logger.Error(r.Context(), err, "webhook reply failed", "event_id", result.EventID)
					summary.Errors++
					summary.Results = append(summary.Results, webhookEventResult{
						EventID: result.EventID,
						UserID:  ev.Source.UserID,
						Status:  "error",
						Message: err.Error(),
					})
					continue
				}
				summary.Replied++
			}
		}

		summary.Results = append(summary.Results, webhookEventResult{
			EventID:    result.EventID,
			UserID:     ev.Source.UserID,
			Status:     string(result.Status),
			Action:     string(result.Action),
			Confidence: result.Confidence,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}
