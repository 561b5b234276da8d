// Package bank defines the Client interface for the banking collaborator.
//
// The banking service owns all durable account state. This client only
// mirrors its request/response contract: balance reads, OTP issuance for a
// gated transfer, and OTP verification that commits the transfer.
//
// The mock banking service returns the OTP itself in the otp_hint field so
// the demo can pre-fill the entry prompt. That is a deliberate demo
// affordance — in any real deployment, transmitting the passcode to the
// client is a security defect, and the hint field must be absent.
package bank

import (
	"context"
	"errors"

	"github.com/aurafin/aura/pkg/types"
)

// ErrOTPRejected is returned by VerifyOTP when the banking service explicitly
// rejected the code or the session (wrong code, expired or unknown session,
// insufficient funds). It is terminal for the current transfer attempt; the
// user must restart from confirmation with a new voice command.
var ErrOTPRejected = errors.New("otp verification rejected")

// Client is the abstraction over the banking backend.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Balance returns the current account balance.
	Balance(ctx context.Context) (float64, error)

	// RequestOTP submits a transfer for OTP gating and returns the pending
	// session. No money moves until the session is verified.
	RequestOTP(ctx context.Context, req types.TransferRequest) (types.OTPSession, error)

	// VerifyOTP presents the session token and the user-entered code. On
	// success the transfer is committed and the new balance returned. An
	// explicit rejection wraps [ErrOTPRejected]; transport failures do not.
	VerifyOTP(ctx context.Context, session, code string) (types.TransferResult, error)
}
