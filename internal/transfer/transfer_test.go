package transfer_test

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/aurafin/aura/internal/observe"
	"github.com/aurafin/aura/internal/transfer"
	"github.com/aurafin/aura/pkg/collab/bank"
	bankmock "github.com/aurafin/aura/pkg/collab/bank/mock"
	"github.com/aurafin/aura/pkg/types"
)

var demoAccount = transfer.Account{
	ID:        "00000000-0000-0000-0000-000000000001",
	Currency:  "INR",
	Reference: "voice-demo",
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newFlow(t *testing.T, client *bankmock.Client) *transfer.Flow {
	t.Helper()
	return transfer.New(client, demoAccount, transfer.WithMetrics(testMetrics(t)))
}

func TestFlow_BeginStagesRequest(t *testing.T) {
	f := newFlow(t, &bankmock.Client{})

	if err := f.Begin(500, "Rahul"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if f.State() != transfer.StateAwaitingConfirmation {
		t.Fatalf("state = %v, want awaiting-confirmation", f.State())
	}

	req, ok := f.Pending()
	if !ok {
		t.Fatal("Pending: no staged request")
	}
	if req.FromAccount != demoAccount.ID {
		t.Errorf("from = %q, want demo account", req.FromAccount)
	}
	if req.ToName != "Rahul" || req.Amount != 500 {
		t.Errorf("staged %q/%v, want Rahul/500", req.ToName, req.Amount)
	}
	if req.Currency != "INR" || req.Reference != "voice-demo" {
		t.Errorf("currency/reference = %q/%q", req.Currency, req.Reference)
	}
	if !req.RequireOTP {
		t.Error("staged request does not require OTP")
	}
}

func TestFlow_BeginTwiceFails(t *testing.T) {
	f := newFlow(t, &bankmock.Client{})

	if err := f.Begin(500, "Rahul"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := f.Begin(100, "Priya"); !errors.Is(err, transfer.ErrInvalidState) {
		t.Fatalf("second Begin: err = %v, want ErrInvalidState", err)
	}
}

func TestFlow_DeclineNeverTouchesBank(t *testing.T) {
	client := &bankmock.Client{}
	f := newFlow(t, client)

	if err := f.Begin(500, "Rahul"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := f.Decline(context.Background()); err != nil {
		t.Fatalf("Decline: %v", err)
	}

	if f.State() != transfer.StateIdle {
		t.Errorf("state = %v, want idle", f.State())
	}
	if client.RequestOTPCount() != 0 {
		t.Errorf("RequestOTP called %d times after decline, want 0", client.RequestOTPCount())
	}
	if _, ok := f.Pending(); ok {
		t.Error("pending request survived decline")
	}
}

func TestFlow_ConfirmIssuesOTP(t *testing.T) {
	client := &bankmock.Client{
		RequestOTPResult: types.OTPSession{Token: "otp-1", Hint: "123456"},
	}
	f := newFlow(t, client)

	if err := f.Begin(500, "Rahul"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	session, err := f.Confirm(context.Background())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if session.Token != "otp-1" || session.Hint != "123456" {
		t.Errorf("session = %+v", session)
	}
	if f.State() != transfer.StateAwaitingOTP {
		t.Errorf("state = %v, want awaiting-otp", f.State())
	}

	if client.RequestOTPCount() != 1 {
		t.Fatalf("RequestOTP called %d times, want 1", client.RequestOTPCount())
	}
	sent := client.RequestedTransfers[0]
	if sent.ToName != "Rahul" || sent.Amount != 500 || !sent.RequireOTP {
		t.Errorf("bank saw %+v", sent)
	}
}

func TestFlow_ConfirmFailureReturnsToIdle(t *testing.T) {
	client := &bankmock.Client{RequestOTPError: errors.New("bank down")}
	f := newFlow(t, client)

	if err := f.Begin(500, "Rahul"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := f.Confirm(context.Background()); err == nil {
		t.Fatal("Confirm: err = nil, want issuance error")
	}

	if f.State() != transfer.StateIdle {
		t.Errorf("state = %v, want idle after failed issuance", f.State())
	}
	if _, ok := f.Session(); ok {
		t.Error("OTP session exists after failed issuance")
	}
}

func TestFlow_CancelClearsSessionWithoutVerify(t *testing.T) {
	client := &bankmock.Client{
		RequestOTPResult: types.OTPSession{Token: "otp-1", Hint: "123456"},
	}
	f := newFlow(t, client)

	if err := f.Begin(500, "Rahul"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := f.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := f.Cancel(context.Background()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if f.State() != transfer.StateIdle {
		t.Errorf("state = %v, want idle", f.State())
	}
	if client.VerifyOTPCount() != 0 {
		t.Errorf("VerifyOTP called %d times after cancel, want 0", client.VerifyOTPCount())
	}
	if _, ok := f.Session(); ok {
		t.Error("OTP session survived cancel")
	}
}

func TestFlow_SubmitSuccessAppliesResult(t *testing.T) {
	client := &bankmock.Client{
		RequestOTPResult: types.OTPSession{Token: "otp-1", Hint: "123456"},
		VerifyOTPResult: types.TransferResult{
			NewBalance:  78023,
			Transaction: types.Transaction{Amount: 500, To: "Rahul"},
		},
	}
	f := newFlow(t, client)

	if err := f.Begin(500, "Rahul"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := f.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	result, err := f.Submit(context.Background(), "123456")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if result.NewBalance != 78023 {
		t.Errorf("new balance = %v, want 78023", result.NewBalance)
	}
	if result.Transaction.To != "Rahul" || result.Transaction.Amount != 500 {
		t.Errorf("transaction = %+v", result.Transaction)
	}

	call := client.VerifyCalls[0]
	if call.Session != "otp-1" || call.Code != "123456" {
		t.Errorf("verify called with %+v", call)
	}

	// Terminal cleanup: session gone, flow idle, ready for the next transfer.
	if f.State() != transfer.StateIdle {
		t.Errorf("state = %v, want idle", f.State())
	}
	if _, ok := f.Session(); ok {
		t.Error("OTP session survived completion")
	}
	if err := f.Begin(100, "Priya"); err != nil {
		t.Errorf("Begin after completion: %v", err)
	}
}

func TestFlow_SubmitRejectionClearsSession(t *testing.T) {
	client := &bankmock.Client{
		RequestOTPResult: types.OTPSession{Token: "otp-1", Hint: "123456"},
		VerifyOTPError:   bank.ErrOTPRejected,
	}
	f := newFlow(t, client)

	if err := f.Begin(500, "Rahul"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := f.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	_, err := f.Submit(context.Background(), "000000")
	if !errors.Is(err, bank.ErrOTPRejected) {
		t.Fatalf("Submit: err = %v, want ErrOTPRejected", err)
	}

	// Rejection is terminal for this attempt: same cleanup as success.
	if f.State() != transfer.StateIdle {
		t.Errorf("state = %v, want idle after rejection", f.State())
	}
	if _, ok := f.Session(); ok {
		t.Error("OTP session survived rejection")
	}

	// No automatic retry: a fresh attempt must restart from Begin.
	if _, err := f.Submit(context.Background(), "123456"); !errors.Is(err, transfer.ErrInvalidState) {
		t.Fatalf("Submit after rejection: err = %v, want ErrInvalidState", err)
	}
}

func TestFlow_OperationsInvalidFromIdle(t *testing.T) {
	f := newFlow(t, &bankmock.Client{})
	ctx := context.Background()

	if err := f.Decline(ctx); !errors.Is(err, transfer.ErrInvalidState) {
		t.Errorf("Decline from idle: %v", err)
	}
	if _, err := f.Confirm(ctx); !errors.Is(err, transfer.ErrInvalidState) {
		t.Errorf("Confirm from idle: %v", err)
	}
	if err := f.Cancel(ctx); !errors.Is(err, transfer.ErrInvalidState) {
		t.Errorf("Cancel from idle: %v", err)
	}
	if _, err := f.Submit(ctx, "123456"); !errors.Is(err, transfer.ErrInvalidState) {
		t.Errorf("Submit from idle: %v", err)
	}
}
