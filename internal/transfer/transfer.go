// Package transfer drives the confirmation flow that stands between a
// resolved transfer intent and moved money:
//
//	Idle → AwaitingConfirmation → AwaitingIssuance → AwaitingOTP → Verifying → Idle
//
// No network call that could move money happens before the user explicitly
// confirms, and the one-time-passcode session is cleared unconditionally on
// every terminal path — completed, rejected, failed, or cancelled. Nothing in
// this flow retries on its own; a failed verification requires the user to
// restart from the voice command.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aurafin/aura/internal/observe"
	"github.com/aurafin/aura/pkg/collab/bank"
	"github.com/aurafin/aura/pkg/types"
)

// ErrInvalidState is returned when an operation is attempted in a state that
// does not permit it.
var ErrInvalidState = errors.New("transfer: operation not valid in current state")

// State is the current position in the confirmation flow.
type State int

const (
	// StateIdle means no transfer is in progress.
	StateIdle State = iota

	// StateAwaitingConfirmation holds a pending request until the user
	// accepts or declines. No bank call has been made yet.
	StateAwaitingConfirmation

	// StateAwaitingIssuance covers the OTP request round-trip to the bank.
	StateAwaitingIssuance

	// StateAwaitingOTP means an OTP session exists and the flow is waiting
	// for the user to type the code or cancel.
	StateAwaitingOTP

	// StateVerifying covers the verification round-trip.
	StateVerifying
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateAwaitingIssuance:
		return "awaiting-issuance"
	case StateAwaitingOTP:
		return "awaiting-otp"
	case StateVerifying:
		return "verifying"
	default:
		return "unknown"
	}
}

// Account identifies the demo account transfers are drawn from.
type Account struct {
	ID        string
	Currency  string
	Reference string
}

// Option is a functional option for configuring a [Flow].
type Option func(*Flow)

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(f *Flow) {
		f.metrics = m
	}
}

// Flow is the transfer confirmation state machine. At most one transfer can
// be in flight. All exported methods are safe for concurrent use.
type Flow struct {
	bank    bank.Client
	account Account
	metrics *observe.Metrics

	mu      sync.Mutex
	state   State
	pending types.TransferRequest
	session types.OTPSession
}

// New creates a [Flow] in [StateIdle] charging transfers to account.
func New(bankClient bank.Client, account Account, opts ...Option) *Flow {
	f := &Flow{
		bank:    bankClient,
		account: account,
		state:   StateIdle,
	}
	for _, o := range opts {
		o(f)
	}
	if f.metrics == nil {
		f.metrics = observe.DefaultMetrics()
	}
	return f
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Pending returns the transfer awaiting user confirmation, if any.
func (f *Flow) Pending() (types.TransferRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, f.state == StateAwaitingConfirmation
}

// Session returns the active OTP session, if any. The hint it carries is a
// demo affordance shown to the user; see [bank.Client].
func (f *Flow) Session() (types.OTPSession, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.state == StateAwaitingOTP
}

// Begin stages a transfer of amount to payee and moves to
// [StateAwaitingConfirmation]. Only valid from [StateIdle].
func (f *Flow) Begin(amount float64, payee string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateIdle {
		return fmt.Errorf("%w: begin in %s", ErrInvalidState, f.state)
	}

	f.pending = types.TransferRequest{
		FromAccount: f.account.ID,
		ToName:      payee,
		Amount:      amount,
		Currency:    f.account.Currency,
		Reference:   f.account.Reference,
		RequireOTP:  true,
	}
	f.state = StateAwaitingConfirmation

	slog.Info("transfer staged", "payee", payee, "amount", amount)
	return nil
}

// Decline abandons the staged transfer without touching the bank and returns
// the flow to [StateIdle].
func (f *Flow) Decline(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateAwaitingConfirmation {
		return fmt.Errorf("%w: decline in %s", ErrInvalidState, f.state)
	}

	f.reset()
	f.metrics.RecordTransferOutcome(ctx, "declined")
	slog.Info("transfer declined")
	return nil
}

// Confirm accepts the staged transfer and requests an OTP challenge from the
// bank, consuming the pending request exactly once. On success the flow holds
// an OTP session in [StateAwaitingOTP]; on failure it returns to [StateIdle]
// with nothing issued and no balance change.
func (f *Flow) Confirm(ctx context.Context) (types.OTPSession, error) {
	f.mu.Lock()
	if f.state != StateAwaitingConfirmation {
		f.mu.Unlock()
		return types.OTPSession{}, fmt.Errorf("%w: confirm in %s", ErrInvalidState, f.state)
	}
	req := f.pending
	f.state = StateAwaitingIssuance
	f.mu.Unlock()

	session, err := f.bank.RequestOTP(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.reset()
		f.metrics.RecordCollaboratorRequest(ctx, "bank", "otp_generate", "error")
		f.metrics.RecordTransferOutcome(ctx, "failed")
		return types.OTPSession{}, fmt.Errorf("transfer: request otp: %w", err)
	}
	f.metrics.RecordCollaboratorRequest(ctx, "bank", "otp_generate", "ok")

	f.session = session
	f.state = StateAwaitingOTP
	slog.Info("otp issued", "session", session.Token)
	return session, nil
}

// Cancel abandons the OTP entry step. The session is cleared without any
// verification call and the flow returns to [StateIdle].
func (f *Flow) Cancel(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateAwaitingOTP {
		return fmt.Errorf("%w: cancel in %s", ErrInvalidState, f.state)
	}

	f.reset()
	f.metrics.RecordTransferOutcome(ctx, "cancelled")
	slog.Info("otp entry cancelled")
	return nil
}

// Submit sends the entered code for verification. Whatever the outcome, the
// OTP session is cleared and the flow returns to [StateIdle]; there is no
// retry path. On success the new balance and transaction record are
// returned. A rejected or expired code surfaces as [bank.ErrOTPRejected].
func (f *Flow) Submit(ctx context.Context, code string) (types.TransferResult, error) {
	f.mu.Lock()
	if f.state != StateAwaitingOTP {
		f.mu.Unlock()
		return types.TransferResult{}, fmt.Errorf("%w: submit in %s", ErrInvalidState, f.state)
	}
	token := f.session.Token
	f.state = StateVerifying
	f.mu.Unlock()

	result, err := f.bank.VerifyOTP(ctx, token, code)

	f.mu.Lock()
	defer f.mu.Unlock()
	// Terminal cleanup happens regardless of outcome.
	f.reset()

	if err != nil {
		f.metrics.RecordCollaboratorRequest(ctx, "bank", "otp_verify", "error")
		if errors.Is(err, bank.ErrOTPRejected) {
			f.metrics.RecordTransferOutcome(ctx, "rejected")
		} else {
			f.metrics.RecordTransferOutcome(ctx, "failed")
		}
		return types.TransferResult{}, fmt.Errorf("transfer: verify otp: %w", err)
	}
	f.metrics.RecordCollaboratorRequest(ctx, "bank", "otp_verify", "ok")
	f.metrics.RecordTransferOutcome(ctx, "completed")

	slog.Info("transfer completed",
		"to", result.Transaction.To,
		"amount", result.Transaction.Amount,
		"new_balance", result.NewBalance)
	return result, nil
}

// reset clears the pending request and OTP session and returns to idle.
// Must be called with f.mu held.
func (f *Flow) reset() {
	f.pending = types.TransferRequest{}
	f.session = types.OTPSession{}
	f.state = StateIdle
}
