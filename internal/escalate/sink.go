package escalate

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Sink modes reported by Record.
const (
	ModeWebhook = "webhook"
	ModeCSV     = "csv"
	ModeNone    = "none"
)

var csvHeaders = []string{
	"queue_id",
	"created_at",
	"user_id",
	"message_text",
	"reason_code",
	"suggested_reply",
	"status",
	"owner",
	"closed_at",
}

// Sink persists escalation items. A webhook URL takes precedence over a CSV
// path; with neither configured, Record is a no-op.
type Sink struct {
	csvPath    string
	webhookURL string
	httpClient *http.Client
}

// NewSink creates a Sink writing to the given CSV path and/or webhook URL.
func NewSink(csvPath, webhookURL string) *Sink {
	return &Sink{
		csvPath:    csvPath,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Record persists one escalation and reports which mode handled it.
func (s *Sink) Record(ctx context.Context, item *Item) (string, error) {
	if s.webhookURL != "" {
		return ModeWebhook, s.sendWebhook(ctx, item)
	}
	if s.csvPath != "" {
		return ModeCSV, s.appendCSV(item)
	}
	return ModeNone, nil
}

func (s *Sink) sendWebhook(ctx context.Context, item *Item) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal escalation: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("escalation webhook failed (%d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (s *Sink) appendCSV(item *Item) error {
	if err := os.MkdirAll(filepath.Dir(s.csvPath), 0o755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}

	needHeader := false
	if info, err := os.Stat(s.csvPath); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		needHeader = true
	} else if err != nil {
		return fmt.Errorf("stat queue file: %w", err)
	}

	f, err := os.OpenFile(s.csvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open queue file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(csvHeaders); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	record := []string{
		item.QueueID,
		item.CreatedAt.UTC().Format(time.RFC3339),
		item.UserID,
		item.MessageText,
		item.ReasonCode,
		item.SuggestedReply,
		item.Status,
		item.Owner,
		item.ClosedAt,
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.Flush()
	return w.Error()
}
