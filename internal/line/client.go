// Package line talks to the LINE Messaging API: text replies and pushes out,
// webhook signature verification in.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.line.me/v2/bot"

// SendResult reports the outcome of a reply or push. A skipped send is not an
// error: the pipeline keeps working without delivery configured.
type SendResult struct {
	Skipped bool
	Reason  string
}

// Client sends messages through the LINE Messaging API.
type Client struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client. An empty accessToken yields a client that skips every
// send instead of failing.
func New(accessToken string, opts ...Option) *Client {
	c := &Client{
		accessToken: accessToken,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ReplyText answers a webhook event via its reply token. A missing token
// skips the send.
func (c *Client) ReplyText(ctx context.Context, replyToken, text string) (SendResult, error) {
	if replyToken == "" {
		return SendResult{Skipped: true, Reason: "missing_reply_token"}, nil
	}
	return c.send(ctx, "reply", map[string]any{
		"replyToken": replyToken,
		"messages":   []textMessage{{Type: "text", Text: text}},
	})
}

// PushText sends a message directly to a user. A missing recipient skips the
// send.
func (c *Client) PushText(ctx context.Context, to, text string) (SendResult, error) {
	if to == "" {
		return SendResult{Skipped: true, Reason: "missing_recipient"}, nil
	}
	return c.send(ctx, "push", map[string]any{
		"to":       to,
		"messages": []textMessage{{Type: "text", Text: text}},
	})
}

func (c *Client) send(ctx context.Context, path string, payload map[string]any) (SendResult, error) {
	if c.accessToken == "" {
		return SendResult{Skipped: true, Reason: "missing_access_token"}, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/message/"+path, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("send %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return SendResult{}, fmt.Errorf("line api %s failed (%d): %s", path, resp.StatusCode, string(respBody))
	}
	return SendResult{}, nil
}
