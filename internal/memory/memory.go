// Package memory defines the per-user conversation log: an append-only record
// of triage turns with a retention window. Entries are immutable once written
// and eligible for deletion after expiry. The Store contract is backend
// agnostic; a durable backend may enforce expiry natively, in which case its
// Cleanup reports zero explicit removals.
package memory

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is one recorded triage turn.
type Entry struct {
	ID            string    `json:"msg_id"`
	UserID        string    `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
	ExpiresAt     time.Time `json:"expires_at"`
	UserText      string    `json:"user_text"`
	AssistantText string    `json:"assistant_text"`
	Intent        string    `json:"intent"`
	Confidence    float64   `json:"confidence"`
	Action        string    `json:"action"`
}

// Log action values recorded on entries.
const (
	ActionAnswered  = "answered"
	ActionClarified = "clarified"
	ActionEscalated = "escalated"
)

// Store is the conversation memory contract.
//
// Add persists the entry, generating ID, Timestamp, and ExpiresAt when unset
// (ExpiresAt defaults to Timestamp plus the store's retention window).
// Recent returns up to limit unexpired entries for the user, newest first.
// Cleanup removes entries whose expiry is at or before now and reports how
// many were removed. It is idempotent and safe to run concurrently with
// reads and appends.
type Store interface {
	Add(ctx context.Context, e Entry) (Entry, error)
	Recent(ctx context.Context, userID string, limit int) ([]Entry, error)
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

// Normalize fills generated fields on an entry before storage.
func Normalize(e Entry, retention time.Duration) Entry {
	if e.ID == "" {
		e.ID = "msg_" + strings.ToLower(ulid.Make().String())
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.ExpiresAt.IsZero() {
		e.ExpiresAt = e.Timestamp.Add(retention)
	}
	return e
}
