// Package bankapi provides the HTTP client for the mock banking service.
// It implements the bank.Client interface.
package bankapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aurafin/aura/pkg/collab/bank"
	"github.com/aurafin/aura/pkg/types"
)

// Compile-time interface assertion.
var _ bank.Client = (*Client)(nil)

const (
	balanceEndpoint  = "/balance"
	generateEndpoint = "/otp/generate"
	verifyEndpoint   = "/otp/verify"

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

// Client implements bank.Client against the banking HTTP service.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the banking service at baseURL
// (e.g., "http://localhost:8082"). baseURL must be non-empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("bankapi: baseURL must not be empty")
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

// balanceResponse is the JSON body returned by GET /balance.
type balanceResponse struct {
	AccountID string  `json:"account_id"`
	Balance   float64 `json:"balance"`
	Currency  string  `json:"currency"`
}

// generateResponse is the JSON body returned by POST /otp/generate.
type generateResponse struct {
	Session string `json:"session"`
	OTPHint string `json:"otp_hint"`
	Message string `json:"message"`
}

// verifyRequest is the JSON body sent to POST /otp/verify.
type verifyRequest struct {
	Session string `json:"session"`
	OTP     string `json:"otp"`
}

// verifyResponse is the JSON body returned by POST /otp/verify.
type verifyResponse struct {
	Status     string            `json:"status"`
	NewBalance float64           `json:"new_balance"`
	Tx         types.Transaction `json:"tx"`
}

// Balance returns the current account balance via GET /balance.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+balanceEndpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("bankapi: create balance request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("bankapi: GET %s: %w", balanceEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("bankapi: GET %s returned status %d", balanceEndpoint, resp.StatusCode)
	}

	var out balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("bankapi: decode balance response: %w", err)
	}
	return out.Balance, nil
}

// RequestOTP submits req for OTP gating via POST /otp/generate.
func (c *Client) RequestOTP(ctx context.Context, treq types.TransferRequest) (types.OTPSession, error) {
	data, err := json.Marshal(treq)
	if err != nil {
		return types.OTPSession{}, fmt.Errorf("bankapi: marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generateEndpoint, bytes.NewReader(data))
	if err != nil {
		return types.OTPSession{}, fmt.Errorf("bankapi: create otp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.OTPSession{}, fmt.Errorf("bankapi: POST %s: %w", generateEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.OTPSession{}, fmt.Errorf("bankapi: POST %s returned status %d", generateEndpoint, resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.OTPSession{}, fmt.Errorf("bankapi: decode otp response: %w", err)
	}
	if out.Session == "" {
		return types.OTPSession{}, errors.New("bankapi: otp response missing session")
	}
	return types.OTPSession{Token: out.Session, Hint: out.OTPHint}, nil
}

// VerifyOTP presents session and code via POST /otp/verify. Client-error
// statuses (400, 404) are the service explicitly rejecting the code or the
// session and wrap bank.ErrOTPRejected; other failures are transport errors.
func (c *Client) VerifyOTP(ctx context.Context, session, code string) (types.TransferResult, error) {
	data, err := json.Marshal(verifyRequest{Session: session, OTP: code})
	if err != nil {
		return types.TransferResult{}, fmt.Errorf("bankapi: marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyEndpoint, bytes.NewReader(data))
	if err != nil {
		return types.TransferResult{}, fmt.Errorf("bankapi: create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.TransferResult{}, fmt.Errorf("bankapi: POST %s: %w", verifyEndpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return types.TransferResult{}, fmt.Errorf("bankapi: %w (status %d)", bank.ErrOTPRejected, resp.StatusCode)
	default:
		return types.TransferResult{}, fmt.Errorf("bankapi: POST %s returned status %d", verifyEndpoint, resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.TransferResult{}, fmt.Errorf("bankapi: decode verify response: %w", err)
	}
	return types.TransferResult{NewBalance: out.NewBalance, Transaction: out.Tx}, nil
}
