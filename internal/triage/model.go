package triage

import (
	"time"

	"github.com/linnemanlabs/concierge/internal/catalog"
	"github.com/linnemanlabs/concierge/internal/classify"
	"github.com/linnemanlabs/concierge/internal/escalate"
	"github.com/linnemanlabs/concierge/internal/memory"
)

// Action is what the pipeline decides to do with an inquiry.
type Action string

const (
	ActionAnswer   Action = "answer"
	ActionClarify  Action = "clarify"
	ActionEscalate Action = "escalate"
)

// Status describes how an event was handled.
type Status string

const (
	StatusIgnored   Status = "ignored"
	StatusDuplicate Status = "duplicate"
	StatusProcessed Status = "processed"
)

// Event is one incoming chat message to triage. ID is the webhook event id
// (or message id) used for dedup; ReplyToken is empty for non-webhook
// sources.
type Event struct {
	ID         string
	UserID     string
	ReplyToken string
	Text       string
	Timestamp  time.Time
}

// Result is the full outcome of handling one event.
type Result struct {
	Status         Status
	Reason         string
	EventID        string
	Action         Action
	ReplyText      string
	Confidence     float64
	Classification classify.Result
	Profile        *catalog.Profile
	Matches        []catalog.Item
	Escalation     *escalate.Item
	Log            *memory.Entry
}
