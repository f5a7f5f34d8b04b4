// Package escalate records inquiries the pipeline cannot answer on its own
// and hands them to a human manager: each escalation lands in a queue (CSV
// file or webhook) and triggers an operator notification.
package escalate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/concierge/internal/line"
)

// Reason codes for why an inquiry was escalated.
const (
	ReasonSensitive     = "sensitive"
	ReasonLowConfidence = "low_confidence"
)

// Item is one entry in the escalation queue.
type Item struct {
	QueueID        string    `json:"queue_id"`
	CreatedAt      time.Time `json:"created_at"`
	UserID         string    `json:"user_id"`
	MessageText    string    `json:"message_text"`
	ReasonCode     string    `json:"reason_code"`
	SuggestedReply string    `json:"suggested_reply"`
	Status         string    `json:"status"`
	Owner          string    `json:"owner"`
	ClosedAt       string    `json:"closed_at"`

	// Delivery annotations. Set when recording or notifying failed; the
	// escalation itself still proceeds.
	SinkError   string `json:"sink_error,omitempty"`
	NotifyError string `json:"notify_error,omitempty"`
}

// NewItem creates an open escalation owned by the manager queue.
func NewItem(userID, messageText, reasonCode, suggestedReply string) *Item {
	return &Item{
		QueueID:        "esc_" + strings.ToLower(ulid.Make().String()),
		CreatedAt:      time.Now().UTC(),
		UserID:         userID,
		MessageText:    messageText,
		ReasonCode:     reasonCode,
		SuggestedReply: suggestedReply,
		Status:         "open",
		Owner:          "manager",
	}
}

// Notifier delivers the operator summary, typically a LINE push.
type Notifier interface {
	PushText(ctx context.Context, to, text string) (line.SendResult, error)
}

// Router records escalations and notifies the manager. Both steps are
// best-effort: failures are annotated on the item, never returned.
type Router struct {
	sink          *Sink
	notifier      Notifier
	managerUserID string
	log           log.Logger
}

// NewRouter creates a Router. notifier may be nil when no operator channel is
// configured.
func NewRouter(sink *Sink, notifier Notifier, managerUserID string, logger log.Logger) *Router {
	if logger == nil {
		logger = log.Nop()
	}
	return &Router{sink: sink, notifier: notifier, managerUserID: managerUserID, log: logger}
}

// Escalate records the item and pushes a summary to the manager. intent and
// confidence come from classification and are only used in the summary.
func (r *Router) Escalate(ctx context.Context, item *Item, intent string, confidence float64) {
	if mode, err := r.sink.Record(ctx, item); err != nil {
		item.SinkError = err.Error()
		r.log.Error(ctx, err, "escalation sink failed", "queue_id", item.QueueID, "mode", mode)
	}

	if r.notifier == nil {
		return
	}
	summary := formatManagerNotification(item, intent, confidence)
	if _, err := r.notifier.PushText(ctx, r.managerUserID, summary); err != nil {
		item.NotifyError = err.Error()
		r.log.Error(ctx, err, "escalation notify failed", "queue_id", item.QueueID)
	}
}

func formatManagerNotification(item *Item, intent string, confidence float64) string {
	suggested := "(none)"
	if item.SuggestedReply != "" {
		suggested = item.SuggestedReply
	}
	return strings.Join([]string{
		"[Escalation] Talent inquiry needs review",
		"Queue ID: " + item.QueueID,
		"User: " + item.UserID,
		"Reason: " + item.ReasonCode,
		"Intent: " + intent,
		fmt.Sprintf("Confidence: %.2f", confidence),
		"Message: " + item.MessageText,
		"Suggested reply: " + suggested,
	}, "\n")
}
