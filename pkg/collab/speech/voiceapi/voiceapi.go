// Package voiceapi provides the HTTP speech synthesizer backed by the voice
// API's POST /tts endpoint. It implements the speech.Synthesizer interface.
package voiceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aurafin/aura/pkg/collab/speech"
)

// Compile-time interface assertion.
var _ speech.Synthesizer = (*Client)(nil)

const (
	ttsEndpoint    = "/tts"
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

// Client implements speech.Synthesizer against the voice API TTS endpoint.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the voice API at baseURL
// (e.g., "http://localhost:8080"). baseURL must be non-empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("voiceapi: baseURL must not be empty")
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

// ttsRequest is the JSON body sent to POST /tts.
type ttsRequest struct {
	Text string `json:"text"`
}

// ttsResponse is the JSON body returned by POST /tts.
type ttsResponse struct {
	AudioURL string `json:"audio_url"`
}

// Synthesize renders text via the voice API and returns the audio URL.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	data, err := json.Marshal(ttsRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("voiceapi: marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ttsEndpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("voiceapi: create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("voiceapi: POST %s: %w", ttsEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("voiceapi: POST %s returned status %d", ttsEndpoint, resp.StatusCode)
	}

	var out ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("voiceapi: decode tts response: %w", err)
	}
	return out.AudioURL, nil
}
