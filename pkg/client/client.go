// Package client is a Go client for the steward HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the client has no base URL.
var ErrNotConfigured = errors.New("steward URL not configured")

// APIError is a non-2xx response. Problem responses fill Title and Detail.
type APIError struct {
	Status int    `json:"status"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("steward: %d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("steward: %d %s", e.Status, http.StatusText(e.Status))
}

// Health is the response of GET /health.
type Health struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Classifier    string `json:"classifier"`
	Guidance      string `json:"guidance"`
	Database      string `json:"database"`
	SchemaVersion int    `json:"schema_version"`
}

// Classification is the response of POST /ai/parse.
type Classification struct {
	Intent               string          `json:"intent"`
	Entities             json.RawMessage `json:"entities"`
	Confidence           float64         `json:"confidence"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
	ConfirmationMessage  string          `json:"confirmation_message,omitempty"`
}

// Outcome is the result of an executed action.
type Outcome struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message"`
}

// Reply is the assistant's answer to one turn.
type Reply struct {
	Message         string          `json:"message"`
	State           string          `json:"state"`
	Intent          string          `json:"intent,omitempty"`
	Confidence      float64         `json:"confidence,omitempty"`
	Outcome         *Outcome        `json:"outcome,omitempty"`
	Pending         *Classification `json:"pending,omitempty"`
	ReplacedPending bool            `json:"replaced_pending,omitempty"`
}

// Session describes an assistant session.
type Session struct {
	SessionID string          `json:"session_id"`
	State     string          `json:"state,omitempty"`
	Pending   *Classification `json:"pending,omitempty"`
}

// Client talks to a steward server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL authenticating with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks server health. It does not authenticate.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Parse classifies input without acting on it.
func (c *Client) Parse(ctx context.Context, input string) (*Classification, error) {
	var r Classification
	if err := c.do(ctx, http.MethodPost, "/api/v1/ai/parse", map[string]string{"input": input}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Execute dispatches an intent with its entities. A failed action is
// reported in the Outcome, not as an error.
func (c *Client) Execute(ctx context.Context, intent string, entities any) (*Outcome, error) {
	body := map[string]any{"intent": intent, "entities": entities}
	var out Outcome
	err := c.do(ctx, http.MethodPost, "/api/v1/ai/execute", body, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && out.Message != "" {
		return &out, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSession starts an assistant session.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/v1/assistant/sessions", nil, &s); err != nil {
		return "", err
	}
	return s.SessionID, nil
}

// Session returns the state of an assistant session.
func (c *Client) Session(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Send submits one utterance to a session.
func (c *Client) Send(ctx context.Context, sessionID, input string) (*Reply, error) {
	return c.turn(ctx, sessionPath(sessionID, "/messages"), map[string]string{"input": input})
}

// Confirm runs the session's pending action.
func (c *Client) Confirm(ctx context.Context, sessionID string) (*Reply, error) {
	return c.turn(ctx, sessionPath(sessionID, "/confirm"), nil)
}

// Cancel discards the session's pending action.
func (c *Client) Cancel(ctx context.Context, sessionID string) (*Reply, error) {
	return c.turn(ctx, sessionPath(sessionID, "/cancel"), nil)
}

func (c *Client) turn(ctx context.Context, path string, body any) (*Reply, error) {
	var r Reply
	if err := c.do(ctx, http.MethodPost, path, body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/v1/assistant/sessions/" + sessionID + suffix
}

// do sends an authenticated JSON request and decodes the response into out.
// Non-2xx responses become *APIError; out is still decoded when the body is
// JSON so callers can read endpoint-specific error bodies.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/problem+json") {
		_ = json.Unmarshal(data, apiErr)
		apiErr.Status = resp.StatusCode
	} else if out != nil {
		_ = json.Unmarshal(data, out)
	}
	return apiErr
}
