// Package rulesengine provides the HTTP client for the rules engine service.
// It implements the rules.Client interface.
//
// Create targets POST /rules on the rules engine itself; ParseAndCreate
// targets POST /parse-and-create-rule on the voice API, which interprets the
// transcript and forwards the persisted rule. The two base URLs are therefore
// configured separately.
package rulesengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aurafin/aura/pkg/collab/rules"
	"github.com/aurafin/aura/pkg/types"
)

// Compile-time interface assertion.
var _ rules.Client = (*Client)(nil)

const (
	rulesEndpoint          = "/rules"
	simulateEndpoint       = "/simulate"
	parseAndCreateEndpoint = "/parse-and-create-rule"
	triggerEndpoint        = "/events/transaction"

	defaultTimeout = 10 * time.Second
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout. Defaults to 10 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithVoiceAPI sets the base URL of the voice API used for the
// parse-and-create shortcut. When empty, ParseAndCreate always returns
// rules.ErrNotParsed, which makes the shortcut a clean no-op for deployments
// without it.
func WithVoiceAPI(baseURL string) Option {
	return func(c *Client) {
		c.voiceURL = strings.TrimRight(baseURL, "/")
	}
}

// Client implements rules.Client against the rules engine HTTP service.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	voiceURL   string
	httpClient *http.Client
}

// New creates a Client targeting the rules engine at baseURL
// (e.g., "http://localhost:8081"). baseURL must be non-empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("rulesengine: baseURL must not be empty")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// createRequest is the JSON body sent to POST /rules.
type createRequest struct {
	Text string `json:"text"`
}

// parseAndCreateRequest is the JSON body sent to POST /parse-and-create-rule.
type parseAndCreateRequest struct {
	Transcript string `json:"transcript"`
}

// simulateResponse is the JSON body returned by POST /simulate.
type simulateResponse struct {
	Messages []string `json:"messages"`
}

// Create persists text as a rule via POST /rules.
func (c *Client) Create(ctx context.Context, text string) (types.Rule, error) {
	rule, err := c.postRule(ctx, c.baseURL+rulesEndpoint, createRequest{Text: text})
	if err != nil {
		return types.Rule{}, err
	}
	return rule, nil
}

// ParseAndCreate runs the voice shortcut via POST /parse-and-create-rule.
// A response without a rule id wraps rules.ErrNotParsed — the service
// answered "not_parsed" rather than failing.
func (c *Client) ParseAndCreate(ctx context.Context, transcript string) (types.Rule, error) {
	if c.voiceURL == "" {
		return types.Rule{}, fmt.Errorf("rulesengine: shortcut not configured: %w", rules.ErrNotParsed)
	}
	rule, err := c.postRule(ctx, c.voiceURL+parseAndCreateEndpoint, parseAndCreateRequest{Transcript: transcript})
	if err != nil {
		return types.Rule{}, err
	}
	if rule.ID == "" {
		return types.Rule{}, fmt.Errorf("rulesengine: %w", rules.ErrNotParsed)
	}
	return rule, nil
}

// Simulate feeds a synthetic event to POST /simulate and returns the fired
// rule messages.
func (c *Client) Simulate(ctx context.Context, event map[string]string) ([]string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("rulesengine: marshal simulate event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+simulateEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("rulesengine: create simulate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rulesengine: POST %s: %w", simulateEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rulesengine: POST %s returned status %d", simulateEndpoint, resp.StatusCode)
	}

	var out simulateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("rulesengine: decode simulate response: %w", err)
	}
	return out.Messages, nil
}

// triggerResponse is the JSON body returned by POST /events/transaction.
type triggerResponse struct {
	Status string `json:"status"`
}

// TriggerTransaction publishes a synthetic transaction onto the event bus via
// POST /events/transaction on the voice API. Like the parse-and-create
// shortcut it lives on the voice API, so it needs [WithVoiceAPI] to be set.
func (c *Client) TriggerTransaction(ctx context.Context) error {
	if c.voiceURL == "" {
		return errors.New("rulesengine: trigger not configured: no voice API base URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.voiceURL+triggerEndpoint, nil)
	if err != nil {
		return fmt.Errorf("rulesengine: create trigger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rulesengine: POST %s: %w", triggerEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rulesengine: POST %s returned status %d", triggerEndpoint, resp.StatusCode)
	}

	var out triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("rulesengine: decode trigger response: %w", err)
	}
	if out.Status != "published" {
		return fmt.Errorf("rulesengine: unexpected trigger status %q", out.Status)
	}
	return nil
}

// postRule sends body as JSON to url and decodes a rule from the response.
func (c *Client) postRule(ctx context.Context, url string, body any) (types.Rule, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return types.Rule{}, fmt.Errorf("rulesengine: marshal rule request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return types.Rule{}, fmt.Errorf("rulesengine: create rule request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.Rule{}, fmt.Errorf("rulesengine: POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Rule{}, fmt.Errorf("rulesengine: POST %s returned status %d", url, resp.StatusCode)
	}

	var rule types.Rule
	if err := json.NewDecoder(resp.Body).Decode(&rule); err != nil {
		return types.Rule{}, fmt.Errorf("rulesengine: decode rule response: %w", err)
	}
	return rule, nil
}
