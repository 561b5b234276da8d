// Package mock provides an in-memory mock implementation of the
// [bank.Client] interface for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/aurafin/aura/pkg/collab/bank"
	"github.com/aurafin/aura/pkg/types"
)

// Compile-time interface assertion.
var _ bank.Client = (*Client)(nil)

// VerifyCall records the arguments of one VerifyOTP call.
type VerifyCall struct {
	Session string
	Code    string
}

// Client is a mock implementation of [bank.Client].
// Set the exported Result/Error fields before use; inspect the recorded
// fields after.
type Client struct {
	mu sync.Mutex

	// BalanceResult is returned by Balance when BalanceError is nil.
	BalanceResult float64

	// BalanceError is returned by Balance when non-nil.
	BalanceError error

	// RequestOTPResult is returned by RequestOTP when RequestOTPError is nil.
	RequestOTPResult types.OTPSession

	// RequestOTPError is returned by RequestOTP when non-nil.
	RequestOTPError error

	// VerifyOTPResult is returned by VerifyOTP when VerifyOTPError is nil.
	VerifyOTPResult types.TransferResult

	// VerifyOTPError is returned by VerifyOTP when non-nil. Wrap
	// bank.ErrOTPRejected to simulate an explicit rejection.
	VerifyOTPError error

	// RequestedTransfers records the request argument of every RequestOTP call.
	RequestedTransfers []types.TransferRequest

	// VerifyCalls records the arguments of every VerifyOTP call.
	VerifyCalls []VerifyCall

	// CallCountBalance records how many times Balance was called.
	CallCountBalance int
}

// Balance implements [bank.Client].
func (c *Client) Balance(_ context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountBalance++
	if c.BalanceError != nil {
		return 0, c.BalanceError
	}
	return c.BalanceResult, nil
}

// RequestOTP implements [bank.Client].
func (c *Client) RequestOTP(_ context.Context, req types.TransferRequest) (types.OTPSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RequestedTransfers = append(c.RequestedTransfers, req)
	if c.RequestOTPError != nil {
		return types.OTPSession{}, c.RequestOTPError
	}
	return c.RequestOTPResult, nil
}

// VerifyOTP implements [bank.Client].
func (c *Client) VerifyOTP(_ context.Context, session, code string) (types.TransferResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.VerifyCalls = append(c.VerifyCalls, VerifyCall{Session: session, Code: code})
	if c.VerifyOTPError != nil {
		return types.TransferResult{}, c.VerifyOTPError
	}
	return c.VerifyOTPResult, nil
}

// RequestOTPCount returns how many times RequestOTP was called.
func (c *Client) RequestOTPCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.RequestedTransfers)
}

// VerifyOTPCount returns how many times VerifyOTP was called.
func (c *Client) VerifyOTPCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.VerifyCalls)
}
