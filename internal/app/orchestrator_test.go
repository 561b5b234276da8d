package app_test

import (
	"context"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/aurafin/aura/internal/app"
	"github.com/aurafin/aura/internal/intent"
	"github.com/aurafin/aura/internal/observe"
	"github.com/aurafin/aura/internal/transfer"
	"github.com/aurafin/aura/pkg/capture"
	capturemock "github.com/aurafin/aura/pkg/capture/mock"
	"github.com/aurafin/aura/pkg/collab/bank"
	bankmock "github.com/aurafin/aura/pkg/collab/bank/mock"
	"github.com/aurafin/aura/pkg/collab/nlu"
	nlumock "github.com/aurafin/aura/pkg/collab/nlu/mock"
	recogmock "github.com/aurafin/aura/pkg/collab/recognition/mock"
	"github.com/aurafin/aura/pkg/collab/rules"
	rulesmock "github.com/aurafin/aura/pkg/collab/rules/mock"
	speechmock "github.com/aurafin/aura/pkg/collab/speech/mock"
	"github.com/aurafin/aura/pkg/types"
)

var demoAccount = transfer.Account{
	ID:        "00000000-0000-0000-0000-000000000001",
	Currency:  "INR",
	Reference: "voice-demo",
}

// harness wires an orchestrator over mocks and runs its reducer.
type harness struct {
	orch   *app.Orchestrator
	states chan app.State
	cancel context.CancelFunc
	done   chan struct{}

	source *capturemock.Source
	recog  *recogmock.Client
	nluC   *nlumock.Client
	rulesC *rulesmock.Client
	bankC  *bankmock.Client
	speech *speechmock.Synthesizer
}

func newHarness(t *testing.T, frames int) *harness {
	t.Helper()

	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	frameCh := make(chan capture.Frame, frames)
	for i := 0; i < frames; i++ {
		frameCh <- capture.Frame{Data: []byte{byte(i)}}
	}

	h := &harness{
		states: make(chan app.State, 256),
		source: &capturemock.Source{OpenResult: &capturemock.Stream{FramesResult: frameCh}},
		recog:  &recogmock.Client{},
		nluC:   &nlumock.Client{},
		rulesC: &rulesmock.Client{ParseAndCreateError: rules.ErrNotParsed},
		bankC:  &bankmock.Client{},
		speech: &speechmock.Synthesizer{},
	}

	resolver := intent.New(h.rulesC, h.nluC, nil, intent.WithMetrics(metrics))
	flow := transfer.New(h.bankC, demoAccount, transfer.WithMetrics(metrics))

	h.orch = app.New(app.Config{
		Source:      h.source,
		Recognition: h.recog,
		Resolver:    resolver,
		Rules:       h.rulesC,
		Bank:        h.bankC,
		Flow:        flow,
		Speech:      h.speech,
		Metrics:     metrics,
		Listener:    func(s app.State) { h.states <- s },
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	go func() {
		defer close(h.done)
		_ = h.orch.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

// waitFor consumes state snapshots until pred accepts one.
func (h *harness) waitFor(t *testing.T, what string, pred func(app.State) bool) app.State {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-h.states:
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s; last state: %+v", what, h.orch.Snapshot())
		}
	}
}

func TestOrchestrator_BalanceScenario(t *testing.T) {
	h := newHarness(t, 3)
	h.recog.FinalizeResult = "what is my balance"
	h.nluC.ParseResult = nlu.Classification{Intent: nlu.IntentBalance}
	h.bankC.BalanceResult = 100000

	h.orch.StartRecording()
	h.waitFor(t, "recording", func(s app.State) bool { return s.Phase == app.PhaseRecording })

	h.orch.StopRecording()
	final := h.waitFor(t, "balance applied", func(s app.State) bool { return s.Balance == 100000 })

	if final.Transcript != "what is my balance" {
		t.Errorf("transcript = %q", final.Transcript)
	}
	if !strings.Contains(final.Status, "100000.00") {
		t.Errorf("status = %q, want balance message", final.Status)
	}
	if final.Phase != app.PhaseIdle {
		t.Errorf("phase = %q, want idle", final.Phase)
	}
}

func TestOrchestrator_TransferHappyPath(t *testing.T) {
	h := newHarness(t, 2)
	h.recog.FinalizeResult = "send 500 to rohan"
	amount := 500.0
	h.nluC.ParseResult = nlu.Classification{
		Intent: nlu.IntentTransfer,
		Amount: &amount,
		Name:   "Rohan",
	}
	h.bankC.RequestOTPResult = types.OTPSession{Token: "otp-1", Hint: "123456"}
	h.bankC.VerifyOTPResult = types.TransferResult{
		NewBalance:  78023,
		Transaction: types.Transaction{Amount: 500, To: "Rohan"},
	}

	h.orch.StartRecording()
	h.waitFor(t, "recording", func(s app.State) bool { return s.Phase == app.PhaseRecording })
	h.orch.StopRecording()

	staged := h.waitFor(t, "confirmation prompt", func(s app.State) bool { return s.AwaitingConfirmation })
	if staged.PendingTransfer.ToName != "Rohan" || staged.PendingTransfer.Amount != 500 {
		t.Errorf("pending = %+v", staged.PendingTransfer)
	}
	if h.bankC.RequestOTPCount() != 0 {
		t.Fatal("OTP requested before the user confirmed")
	}

	h.orch.ConfirmTransfer()
	entry := h.waitFor(t, "otp entry", func(s app.State) bool { return s.AwaitingOTP })
	if entry.OTP.Hint != "123456" {
		t.Errorf("hint = %q, want demo hint", entry.OTP.Hint)
	}

	h.orch.SubmitOTP("123456")
	done := h.waitFor(t, "transfer completion", func(s app.State) bool { return s.Balance == 78023 })

	if done.AwaitingOTP || done.OTP.Token != "" || done.OTP.Hint != "" {
		t.Errorf("OTP session not cleared: %+v", done.OTP)
	}
	if !strings.Contains(done.Status, "Rohan") {
		t.Errorf("status = %q, want completion message", done.Status)
	}
	if got := h.bankC.VerifyCalls[0]; got.Session != "otp-1" || got.Code != "123456" {
		t.Errorf("verify call = %+v", got)
	}
}

func TestOrchestrator_DeclineNeverIssuesOTP(t *testing.T) {
	h := newHarness(t, 1)
	h.recog.FinalizeResult = "send 500 to rohan"
	amount := 500.0
	h.nluC.ParseResult = nlu.Classification{
		Intent: nlu.IntentTransfer,
		Amount: &amount,
		Name:   "Rohan",
	}

	h.orch.StartRecording()
	h.waitFor(t, "recording", func(s app.State) bool { return s.Phase == app.PhaseRecording })
	h.orch.StopRecording()
	h.waitFor(t, "confirmation prompt", func(s app.State) bool { return s.AwaitingConfirmation })

	h.orch.DeclineTransfer()
	done := h.waitFor(t, "decline applied", func(s app.State) bool { return !s.AwaitingConfirmation })

	if h.bankC.RequestOTPCount() != 0 {
		t.Errorf("RequestOTP called %d times after decline, want 0", h.bankC.RequestOTPCount())
	}
	if !strings.Contains(done.Status, "cancelled") {
		t.Errorf("status = %q, want cancelled message", done.Status)
	}
}

func TestOrchestrator_RejectedOTPLeavesBalance(t *testing.T) {
	h := newHarness(t, 1)
	h.recog.FinalizeResult = "send 500 to rohan"
	amount := 500.0
	h.nluC.ParseResult = nlu.Classification{
		Intent: nlu.IntentTransfer,
		Amount: &amount,
		Name:   "Rohan",
	}
	h.bankC.RequestOTPResult = types.OTPSession{Token: "otp-1", Hint: "123456"}
	h.bankC.VerifyOTPError = bank.ErrOTPRejected

	h.orch.StartRecording()
	h.waitFor(t, "recording", func(s app.State) bool { return s.Phase == app.PhaseRecording })
	h.orch.StopRecording()
	h.waitFor(t, "confirmation prompt", func(s app.State) bool { return s.AwaitingConfirmation })
	h.orch.ConfirmTransfer()
	h.waitFor(t, "otp entry", func(s app.State) bool { return s.AwaitingOTP })

	h.orch.SubmitOTP("000000")
	done := h.waitFor(t, "rejection applied", func(s app.State) bool {
		return strings.Contains(s.Status, "Invalid or expired")
	})

	if done.Balance != 0 {
		t.Errorf("balance = %v, want unchanged", done.Balance)
	}
	if done.OTP.Token != "" || done.OTP.Hint != "" {
		t.Errorf("OTP session not cleared: %+v", done.OTP)
	}
}

func TestOrchestrator_HeuristicRuleFromVoice(t *testing.T) {
	h := newHarness(t, 1)
	h.recog.FinalizeResult = "if salary then move 20% to savings"
	h.nluC.ParseResult = nlu.Classification{Intent: nlu.IntentUnknown}
	h.rulesC.CreateResult = types.Rule{ID: "r1", Trigger: "salary", Action: "move 20% to savings"}

	h.orch.StartRecording()
	h.waitFor(t, "recording", func(s app.State) bool { return s.Phase == app.PhaseRecording })
	h.orch.StopRecording()

	done := h.waitFor(t, "rule saved", func(s app.State) bool { return len(s.Rules) == 1 })
	if done.Rules[0].ID != "r1" {
		t.Errorf("rules = %+v", done.Rules)
	}
	if !strings.Contains(done.Status, "Rule saved") {
		t.Errorf("status = %q", done.Status)
	}
}

func TestOrchestrator_UnknownIntent(t *testing.T) {
	h := newHarness(t, 1)
	h.recog.FinalizeResult = "mumble mumble"
	h.nluC.ParseError = context.DeadlineExceeded
	h.rulesC.CreateError = context.DeadlineExceeded

	h.orch.StartRecording()
	h.waitFor(t, "recording", func(s app.State) bool { return s.Phase == app.PhaseRecording })
	h.orch.StopRecording()

	h.waitFor(t, "unknown status", func(s app.State) bool {
		return strings.Contains(s.Status, "could not act")
	})
}

func TestOrchestrator_InterimUpdatesTranscript(t *testing.T) {
	h := newHarness(t, 2)
	h.recog.InterimResults = map[int]string{1: "send", 2: "send money"}
	h.recog.FinalizeResult = "send money"
	h.nluC.ParseResult = nlu.Classification{Intent: nlu.IntentUnknown}
	h.rulesC.CreateResult = types.Rule{ID: "r1"}

	h.orch.StartRecording()
	h.waitFor(t, "interim transcript", func(s app.State) bool {
		return s.Phase == app.PhaseRecording && strings.HasPrefix(s.Transcript, "send")
	})

	h.orch.StopRecording()
	done := h.waitFor(t, "final transcript", func(s app.State) bool {
		return s.Phase == app.PhaseIdle && s.Transcript == "send money"
	})
	if done.Transcript != "send money" {
		t.Errorf("transcript = %q", done.Transcript)
	}
}

func TestOrchestrator_SaveRuleCommand(t *testing.T) {
	h := newHarness(t, 0)
	h.rulesC.CreateResult = types.Rule{ID: "r9", Trigger: "rent due", Action: "notify me"}

	h.orch.SaveRule("if rent due then notify me")
	done := h.waitFor(t, "rule saved", func(s app.State) bool { return len(s.Rules) == 1 })

	if done.Rules[0].ID != "r9" {
		t.Errorf("rules = %+v", done.Rules)
	}
	if h.rulesC.CreateCount() != 1 {
		t.Errorf("Create called %d times, want 1", h.rulesC.CreateCount())
	}
}

func TestOrchestrator_SimulateRule(t *testing.T) {
	h := newHarness(t, 0)
	h.rulesC.SimulateResult = []string{"Moved 20% of salary to savings"}

	h.orch.SimulateRule(map[string]string{"event": "salary_credited"})
	done := h.waitFor(t, "simulation result", func(s app.State) bool { return len(s.Simulation) == 1 })

	if done.Simulation[0] != "Moved 20% of salary to savings" {
		t.Errorf("simulation = %v", done.Simulation)
	}
}

func TestOrchestrator_TriggerTransaction(t *testing.T) {
	h := newHarness(t, 0)

	h.orch.TriggerTransaction()
	h.waitFor(t, "event published", func(s app.State) bool {
		return strings.Contains(s.Status, "Event published")
	})

	if h.rulesC.TriggerCount() != 1 {
		t.Errorf("TriggerTransaction called %d times, want 1", h.rulesC.TriggerCount())
	}
}

func TestOrchestrator_TriggerTransactionFailure(t *testing.T) {
	h := newHarness(t, 0)
	h.rulesC.TriggerError = context.DeadlineExceeded

	h.orch.TriggerTransaction()
	h.waitFor(t, "publish failure status", func(s app.State) bool {
		return strings.Contains(s.Status, "Could not publish")
	})
}

func TestOrchestrator_CommandsAfterShutdownDoNotBlock(t *testing.T) {
	h := newHarness(t, 0)

	h.cancel()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// Far more commands than the event buffer holds. With no reducer left
	// they must be dropped rather than queued.
	posted := make(chan struct{})
	go func() {
		defer close(posted)
		for i := 0; i < 200; i++ {
			h.orch.TriggerTransaction()
		}
	}()
	select {
	case <-posted:
	case <-time.After(2 * time.Second):
		t.Fatal("posting commands blocked after shutdown")
	}
}

func TestOrchestrator_CaptureUnavailable(t *testing.T) {
	h := newHarness(t, 0)
	h.source.OpenError = capture.ErrUnavailable

	h.orch.StartRecording()
	done := h.waitFor(t, "capture failure status", func(s app.State) bool {
		return strings.Contains(s.Status, "Microphone unavailable")
	})
	if done.Phase != app.PhaseIdle {
		t.Errorf("phase = %q, want idle after failed start", done.Phase)
	}
}

func TestOrchestrator_StartGatedDuringTransfer(t *testing.T) {
	h := newHarness(t, 1)
	h.recog.FinalizeResult = "send 500 to rohan"
	amount := 500.0
	h.nluC.ParseResult = nlu.Classification{
		Intent: nlu.IntentTransfer,
		Amount: &amount,
		Name:   "Rohan",
	}

	h.orch.StartRecording()
	h.waitFor(t, "recording", func(s app.State) bool { return s.Phase == app.PhaseRecording })
	h.orch.StopRecording()
	h.waitFor(t, "confirmation prompt", func(s app.State) bool { return s.AwaitingConfirmation })

	h.orch.StartRecording()
	h.waitFor(t, "gating status", func(s app.State) bool {
		return strings.Contains(s.Status, "pending transfer")
	})
	if h.source.CallCountOpen != 1 {
		t.Errorf("Open called %d times, want 1 (second start gated)", h.source.CallCountOpen)
	}
}
