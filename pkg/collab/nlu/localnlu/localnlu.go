// Package localnlu provides the HTTP client for the local NLU service's
// POST /parse endpoint. It implements the nlu.Client interface.
package localnlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aurafin/aura/pkg/collab/nlu"
)

// Compile-time interface assertion.
var _ nlu.Client = (*Client)(nil)

const (
	parseEndpoint  = "/parse"
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

// Client implements nlu.Client against the local NLU HTTP service.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the NLU service at baseURL
// (e.g., "http://localhost:8090"). baseURL must be non-empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("localnlu: baseURL must not be empty")
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

// parseRequest is the JSON body sent to POST /parse.
type parseRequest struct {
	Text string `json:"text"`
}

// parseResponse is the JSON body returned by POST /parse.
type parseResponse struct {
	Intent  string   `json:"intent"`
	Amount  *float64 `json:"amount"`
	Name    string   `json:"name"`
	Trigger string   `json:"trigger"`
	Action  string   `json:"action"`
	Raw     string   `json:"raw"`
}

// Parse classifies text via the NLU service. Unrecognised intent strings map
// to nlu.IntentUnknown rather than an error, so an NLU upgrade that adds
// intents degrades gracefully on older clients.
func (c *Client) Parse(ctx context.Context, text string) (nlu.Classification, error) {
	data, err := json.Marshal(parseRequest{Text: text})
	if err != nil {
		return nlu.Classification{}, fmt.Errorf("localnlu: marshal parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+parseEndpoint, bytes.NewReader(data))
	if err != nil {
		return nlu.Classification{}, fmt.Errorf("localnlu: create parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nlu.Classification{}, fmt.Errorf("localnlu: POST %s: %w", parseEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nlu.Classification{}, fmt.Errorf("localnlu: POST %s returned status %d", parseEndpoint, resp.StatusCode)
	}

	var out parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nlu.Classification{}, fmt.Errorf("localnlu: decode parse response: %w", err)
	}

	return nlu.Classification{
		Intent:  normalizeIntent(out.Intent),
		Amount:  out.Amount,
		Name:    out.Name,
		Trigger: out.Trigger,
		Action:  out.Action,
		Raw:     out.Raw,
	}, nil
}

// normalizeIntent maps the service's intent string onto the known set.
func normalizeIntent(s string) nlu.Intent {
	switch nlu.Intent(s) {
	case nlu.IntentTransfer, nlu.IntentBalance, nlu.IntentCreateRule:
		return nlu.Intent(s)
	default:
		return nlu.IntentUnknown
	}
}
