// Package voiceapi provides the HTTP recognition client for the Aura voice
// API. It implements the recognition.Client interface.
//
// Chunks are uploaded as multipart/form-data to POST /asr/chunk with fields
// "chunk" (the payload), "seq", and "session"; the session is finalized with
// a JSON POST to /asr/complete carrying the session identity.
//
// Usage:
//
//	c, err := voiceapi.New("http://localhost:8080",
//	    voiceapi.WithTimeout(10*time.Second),
//	)
//	interim, err := c.SubmitChunk(ctx, sessionID, 1, payload)
//	transcript, err := c.Finalize(ctx, sessionID)
package voiceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aurafin/aura/pkg/collab/recognition"
)

// Compile-time interface assertion.
var _ recognition.Client = (*Client)(nil)

const (
	chunkEndpoint    = "/asr/chunk"
	completeEndpoint = "/asr/complete"

	defaultTimeout = 15 * time.Second
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout. Defaults to 15 s — finalize
// covers a whole-session transcription pass, which is slower than a chunk
// write.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely. Useful for
// tests and for callers that need custom transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client implements recognition.Client against the voice API's chunked ASR
// endpoints. It is safe for concurrent use; multiple chunk uploads may run in
// parallel.
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

// chunkResponse is the JSON body returned by POST /asr/chunk.
type chunkResponse struct {
	Seq     string `json:"seq"`
	Interim string `json:"interim"`
}

// completeRequest is the JSON body sent to POST /asr/complete.
type completeRequest struct {
	Session string `json:"session"`
}

// completeResponse is the JSON body returned by POST /asr/complete.
// Transcript is a pointer so a missing field can be told apart from an empty
// transcript.
type completeResponse struct {
	Transcript *string `json:"transcript"`
}

// SubmitChunk uploads one audio chunk and returns any interim transcript the
// backend produced for the session so far.
func (c *Client) SubmitChunk(ctx context.Context, session string, seq int, payload []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("chunk", fmt.Sprintf("chunk-%d.webm", seq))
	if err != nil {
		return "", fmt.Errorf("voiceapi: create form file: %w", err)
	}
	if _, err := fw.Write(payload); err != nil {
		return "", fmt.Errorf("voiceapi: write chunk payload: %w", err)
	}
	if err := mw.WriteField("seq", strconv.Itoa(seq)); err != nil {
		return "", fmt.Errorf("voiceapi: write seq field: %w", err)
	}
	if err := mw.WriteField("session", session); err != nil {
		return "", fmt.Errorf("voiceapi: write session field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("voiceapi: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chunkEndpoint, &body)
	if err != nil {
		return "", fmt.Errorf("voiceapi: create chunk request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("voiceapi: POST %s: %w", chunkEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("voiceapi: POST %s returned status %d", chunkEndpoint, resp.StatusCode)
	}

	var out chunkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("voiceapi: decode chunk response: %w", err)
	}
	return out.Interim, nil
}

// Finalize ends the session and returns the authoritative transcript.
// A 200 response without a transcript field wraps recognition.ErrMalformed.
func (c *Client) Finalize(ctx context.Context, session string) (string, error) {
	data, err := json.Marshal(completeRequest{Session: session})
	if err != nil {
		return "", fmt.Errorf("voiceapi: marshal complete request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completeEndpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("voiceapi: create complete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("voiceapi: POST %s: %w", completeEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("voiceapi: POST %s returned status %d", completeEndpoint, resp.StatusCode)
	}

	var out completeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("voiceapi: decode complete response: %w", err)
	}
	if out.Transcript == nil {
		return "", fmt.Errorf("voiceapi: %w: missing transcript field", recognition.ErrMalformed)
	}
	return *out.Transcript, nil
}
