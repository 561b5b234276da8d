// Package app contains the orchestrator that ties capture, recognition,
// intent resolution, and the transfer flow into one application.
//
// All [State] mutation happens on a single reducer goroutine driven by an
// event channel: user commands and collaborator completions are posted as
// immutable events, and the reducer computes the next state deterministically
// from each. Blocking collaborator calls never run on the reducer — they are
// dispatched to short-lived goroutines that post a completion event when
// done. Completions carry the session identity that spawned them, so results
// belonging to an abandoned recording are dropped instead of corrupting the
// state of a newer one.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aurafin/aura/internal/intent"
	"github.com/aurafin/aura/internal/observe"
	"github.com/aurafin/aura/internal/recorder"
	"github.com/aurafin/aura/internal/transfer"
	"github.com/aurafin/aura/pkg/capture"
	"github.com/aurafin/aura/pkg/collab/bank"
	"github.com/aurafin/aura/pkg/collab/recognition"
	"github.com/aurafin/aura/pkg/collab/rules"
	"github.com/aurafin/aura/pkg/collab/speech"
	"github.com/aurafin/aura/pkg/types"
)

// eventBuffer bounds how many posted events can queue before posting blocks.
const eventBuffer = 64

// Config holds the collaborators and settings an [Orchestrator] needs.
type Config struct {
	// Source provides audio frames.
	Source capture.Source

	// Recognition receives chunks and produces transcripts.
	Recognition recognition.Client

	// Resolver interprets final transcripts.
	Resolver *intent.Resolver

	// Rules persists and simulates automation rules.
	Rules rules.Client

	// Bank answers balance queries; transfers go through Flow.
	Bank bank.Client

	// Flow is the transfer confirmation state machine.
	Flow *transfer.Flow

	// Speech voices status updates. Optional; nil disables feedback.
	Speech speech.Synthesizer

	// Metrics overrides the default metrics instance, mainly for tests.
	Metrics *observe.Metrics

	// Listener, when set, receives a state snapshot after every applied
	// event. Called on the reducer goroutine; keep it fast.
	Listener func(State)
}

// Orchestrator owns the application state and the event loop that mutates
// it. Construct with [New], then run [Orchestrator.Run] on its own goroutine
// before posting any commands.
type Orchestrator struct {
	rec      *recorder.Recorder
	resolver *intent.Resolver
	rules    rules.Client
	bank     bank.Client
	flow     *transfer.Flow
	speech   speech.Synthesizer
	metrics  *observe.Metrics
	listener func(State)

	events chan event
	done   chan struct{}

	mu         sync.Mutex
	state      State
	interimSeq int
}

// New creates an [Orchestrator] from cfg. The recorder is constructed here so
// interim transcripts flow back in as events.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		resolver: cfg.Resolver,
		rules:    cfg.Rules,
		bank:     cfg.Bank,
		flow:     cfg.Flow,
		speech:   cfg.Speech,
		metrics:  cfg.Metrics,
		listener: cfg.Listener,
		events:   make(chan event, eventBuffer),
		done:     make(chan struct{}),
		state:    State{Phase: PhaseIdle, Status: "Ready."},
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}

	recOpts := []recorder.Option{
		recorder.WithMetrics(o.metrics),
		recorder.WithInterims(func(i recorder.Interim) {
			o.post(evInterim{session: i.SessionID, seq: i.Seq, text: i.Text})
		}),
	}
	o.rec = recorder.New(cfg.Source, cfg.Recognition, recOpts...)
	return o
}

// Run consumes events until ctx is cancelled, then abandons any active
// recording and returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Unblock posters first: closing the recorder waits on upload
			// goroutines, and those may still be posting interims.
			close(o.done)
			if err := o.rec.Close(); err != nil {
				slog.Warn("closing recorder on shutdown", "error", err)
			}
			return nil
		case ev := <-o.events:
			o.apply(ctx, ev)
		}
	}
}

// Snapshot returns a copy of the current application state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

// ─── Commands ─────────────────────────────────────────────────────────────────

// StartRecording begins a new capture session.
func (o *Orchestrator) StartRecording() { o.post(cmdStartRecording{}) }

// StopRecording ends the session and kicks off finalization and resolution.
func (o *Orchestrator) StopRecording() { o.post(cmdStopRecording{}) }

// SaveRule persists text as a rule without going through voice capture.
func (o *Orchestrator) SaveRule(text string) { o.post(cmdSaveRule{text: text}) }

// ConfirmTransfer accepts the staged transfer and requests an OTP.
func (o *Orchestrator) ConfirmTransfer() { o.post(cmdConfirmTransfer{}) }

// DeclineTransfer abandons the staged transfer before any bank call.
func (o *Orchestrator) DeclineTransfer() { o.post(cmdDeclineTransfer{}) }

// SubmitOTP sends the entered code for verification.
func (o *Orchestrator) SubmitOTP(code string) { o.post(cmdSubmitOTP{code: code}) }

// CancelOTP abandons the OTP entry step without verifying.
func (o *Orchestrator) CancelOTP() { o.post(cmdCancelOTP{}) }

// SimulateRule runs the rules engine against a synthetic event.
func (o *Orchestrator) SimulateRule(payload map[string]string) {
	o.post(cmdSimulateRule{payload: payload})
}

// RefreshBalance fetches the current balance.
func (o *Orchestrator) RefreshBalance() { o.post(cmdRefreshBalance{}) }

// TriggerTransaction publishes a demo transaction event through the voice API.
func (o *Orchestrator) TriggerTransaction() { o.post(cmdTriggerTransaction{}) }

// post enqueues an event for the reducer. Once Run has begun shutting down the
// events channel has no reader, so events are dropped instead of queued.
func (o *Orchestrator) post(ev event) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

// ─── Reducer ──────────────────────────────────────────────────────────────────

// apply processes one event. It is only ever called from the Run goroutine.
func (o *Orchestrator) apply(ctx context.Context, ev event) {
	o.mu.Lock()
	switch ev := ev.(type) {
	case cmdStartRecording:
		o.startRecording(ctx)
	case cmdStopRecording:
		o.stopRecording(ctx)
	case evInterim:
		o.applyInterim(ev)
	case evFinal:
		o.applyFinal(ctx, ev)
	case evResolved:
		o.applyResolved(ctx, ev)
	case cmdSaveRule:
		o.state.Status = "Saving rule..."
		o.dispatchSaveRule(ctx, ev.text)
	case evRuleSaved:
		o.applyRuleSaved(ev)
	case cmdConfirmTransfer:
		o.confirmTransfer(ctx)
	case cmdDeclineTransfer:
		o.declineTransfer(ctx)
	case evOTPIssued:
		o.applyOTPIssued(ev)
	case cmdSubmitOTP:
		o.submitOTP(ctx, ev.code)
	case cmdCancelOTP:
		o.cancelOTP(ctx)
	case evTransferDone:
		o.applyTransferDone(ev)
	case cmdSimulateRule:
		o.state.Status = "Running simulation..."
		o.dispatchSimulate(ctx, ev.payload)
	case evSimulated:
		o.applySimulated(ev)
	case cmdRefreshBalance:
		o.state.Status = "Checking balance..."
		o.dispatchBalance(ctx)
	case evBalance:
		o.applyBalance(ev)
	case cmdTriggerTransaction:
		o.state.Status = "Sending event..."
		o.dispatchTrigger(ctx)
	case evTriggered:
		o.applyTriggered(ev)
	}
	snapshot := o.state.clone()
	o.mu.Unlock()

	if o.listener != nil {
		o.listener(snapshot)
	}
}

func (o *Orchestrator) startRecording(ctx context.Context) {
	if o.state.Phase != PhaseIdle {
		slog.Warn("start recording ignored", "phase", string(o.state.Phase))
		return
	}
	if o.flow.State() != transfer.StateIdle {
		o.state.Status = "Finish the pending transfer first."
		return
	}

	sessionID, err := o.rec.Start(ctx)
	if err != nil {
		if errors.Is(err, capture.ErrUnavailable) {
			o.state.Status = "Microphone unavailable. Check permissions and try again."
		} else {
			o.state.Status = "Could not start recording."
		}
		slog.Error("start recording", "error", err)
		return
	}

	o.state.Phase = PhaseRecording
	o.state.SessionID = sessionID
	o.state.Transcript = ""
	o.interimSeq = 0
	o.state.Status = "Listening..."
}

func (o *Orchestrator) stopRecording(ctx context.Context) {
	if o.state.Phase != PhaseRecording {
		slog.Warn("stop recording ignored", "phase", string(o.state.Phase))
		return
	}

	session := o.state.SessionID
	o.state.Phase = PhaseFinalizing
	o.state.Status = "Transcribing..."

	go func() {
		tr, err := o.rec.Stop(ctx)
		o.post(evFinal{session: session, transcript: tr.Text, err: err})
	}()
}

// applyInterim keeps the freshest provisional transcript. Interims for a
// different session, or arriving after stop, are leftovers and are dropped.
func (o *Orchestrator) applyInterim(ev evInterim) {
	if o.state.Phase != PhaseRecording || ev.session != o.state.SessionID {
		return
	}
	if ev.seq < o.interimSeq {
		return
	}
	o.interimSeq = ev.seq
	o.state.Transcript = ev.text
}

func (o *Orchestrator) applyFinal(ctx context.Context, ev evFinal) {
	if o.state.Phase != PhaseFinalizing || ev.session != o.state.SessionID {
		slog.Debug("stale final transcript dropped", "session", ev.session)
		return
	}

	if ev.err != nil {
		o.state.Phase = PhaseIdle
		o.state.Status = "Could not understand the recording. Try again."
		slog.Error("finalize", "session", ev.session, "error", ev.err)
		return
	}

	o.state.Phase = PhaseResolving
	o.state.Transcript = ev.transcript
	o.state.Status = "Thinking..."

	session := ev.session
	transcript := ev.transcript
	go func() {
		res, err := o.resolver.Resolve(ctx, transcript)
		o.post(evResolved{session: session, res: res, err: err})
	}()
}

func (o *Orchestrator) applyResolved(ctx context.Context, ev evResolved) {
	if o.state.Phase != PhaseResolving || ev.session != o.state.SessionID {
		slog.Debug("stale resolution dropped", "session", ev.session)
		return
	}
	o.state.Phase = PhaseIdle

	if ev.err != nil {
		o.state.Status = "Could not interpret the command."
		slog.Error("resolve", "error", ev.err)
		return
	}

	switch ev.res.Kind {
	case intent.KindRuleCreated:
		o.addRule(ev.res.Rule)
		o.state.Status = ruleSavedStatus(ev.res.Rule)
		o.speak(ctx, "Rule created.")

	case intent.KindCreateRule:
		o.state.Status = "Saving rule..."
		o.dispatchSaveRule(ctx, ev.res.Text)

	case intent.KindBalance:
		o.state.Status = "Checking balance..."
		o.dispatchBalance(ctx)

	case intent.KindTransfer:
		if err := o.flow.Begin(ev.res.Amount, ev.res.Payee); err != nil {
			o.state.Status = "Another transfer is already in progress."
			slog.Warn("begin transfer", "error", err)
			return
		}
		req, _ := o.flow.Pending()
		o.state.PendingTransfer = req
		o.state.AwaitingConfirmation = true
		o.state.Status = fmt.Sprintf("Send %.2f %s to %s? Confirm or decline.",
			req.Amount, req.Currency, req.ToName)

	default:
		o.state.Status = "Sorry, I could not act on that."
	}
}

func (o *Orchestrator) dispatchSaveRule(ctx context.Context, text string) {
	go func() {
		rule, err := o.rules.Create(ctx, text)
		o.post(evRuleSaved{rule: rule, err: err})
	}()
}

func (o *Orchestrator) applyRuleSaved(ev evRuleSaved) {
	if ev.err != nil {
		o.state.Status = "Could not save the rule."
		slog.Error("save rule", "error", ev.err)
		return
	}
	o.addRule(ev.rule)
	o.state.Status = ruleSavedStatus(ev.rule)
}

func (o *Orchestrator) confirmTransfer(ctx context.Context) {
	if !o.state.AwaitingConfirmation {
		slog.Warn("confirm ignored: nothing awaiting confirmation")
		return
	}
	o.state.AwaitingConfirmation = false
	o.state.Status = "Requesting a one-time code..."

	go func() {
		session, err := o.flow.Confirm(ctx)
		o.post(evOTPIssued{session: session, err: err})
	}()
}

func (o *Orchestrator) declineTransfer(ctx context.Context) {
	if !o.state.AwaitingConfirmation {
		slog.Warn("decline ignored: nothing awaiting confirmation")
		return
	}
	if err := o.flow.Decline(ctx); err != nil {
		slog.Warn("decline transfer", "error", err)
	}
	o.clearTransfer()
	o.state.Status = "Transfer cancelled."
}

func (o *Orchestrator) applyOTPIssued(ev evOTPIssued) {
	if ev.err != nil {
		o.clearTransfer()
		o.state.Status = "Could not start the transfer. Nothing was sent."
		slog.Error("issue otp", "error", ev.err)
		return
	}
	o.state.OTP = ev.session
	o.state.AwaitingOTP = true
	o.state.Status = "Enter the one-time code to finish the transfer."
}

func (o *Orchestrator) submitOTP(ctx context.Context, code string) {
	if !o.state.AwaitingOTP {
		slog.Warn("otp submit ignored: no code expected")
		return
	}
	o.state.AwaitingOTP = false
	o.state.Status = "Verifying..."

	go func() {
		result, err := o.flow.Submit(ctx, code)
		o.post(evTransferDone{result: result, err: err})
	}()
}

func (o *Orchestrator) cancelOTP(ctx context.Context) {
	if !o.state.AwaitingOTP {
		slog.Warn("otp cancel ignored: no code expected")
		return
	}
	if err := o.flow.Cancel(ctx); err != nil {
		slog.Warn("cancel otp", "error", err)
	}
	o.clearTransfer()
	o.state.Status = "Transfer cancelled."
}

func (o *Orchestrator) applyTransferDone(ev evTransferDone) {
	o.clearTransfer()

	if ev.err != nil {
		if errors.Is(ev.err, bank.ErrOTPRejected) {
			o.state.Status = "Invalid or expired code. The transfer was not made."
		} else {
			o.state.Status = "Verification failed. The transfer was not made."
		}
		slog.Error("verify otp", "error", ev.err)
		return
	}

	o.state.Balance = ev.result.NewBalance
	o.state.Status = fmt.Sprintf("Sent %.2f to %s. New balance %.2f.",
		ev.result.Transaction.Amount, ev.result.Transaction.To, ev.result.NewBalance)
	o.speak(context.Background(), o.state.Status)
}

func (o *Orchestrator) dispatchSimulate(ctx context.Context, payload map[string]string) {
	go func() {
		messages, err := o.rules.Simulate(ctx, payload)
		o.post(evSimulated{messages: messages, err: err})
	}()
}

func (o *Orchestrator) applySimulated(ev evSimulated) {
	if ev.err != nil {
		o.state.Status = "Simulation failed."
		slog.Error("simulate", "error", ev.err)
		return
	}
	o.state.Simulation = ev.messages
	o.state.Status = fmt.Sprintf("Simulation produced %d message(s).", len(ev.messages))
}

func (o *Orchestrator) dispatchBalance(ctx context.Context) {
	go func() {
		balance, err := o.bank.Balance(ctx)
		o.post(evBalance{balance: balance, err: err})
	}()
}

func (o *Orchestrator) applyBalance(ev evBalance) {
	if ev.err != nil {
		o.state.Status = "Could not fetch the balance."
		slog.Error("balance", "error", ev.err)
		return
	}
	o.state.Balance = ev.balance
	o.state.Status = fmt.Sprintf("Your balance is %.2f.", ev.balance)
	o.speak(context.Background(), o.state.Status)
}

func (o *Orchestrator) dispatchTrigger(ctx context.Context) {
	go func() {
		err := o.rules.TriggerTransaction(ctx)
		o.post(evTriggered{err: err})
	}()
}

func (o *Orchestrator) applyTriggered(ev evTriggered) {
	if ev.err != nil {
		o.state.Status = "Could not publish the event."
		slog.Error("trigger transaction", "error", ev.err)
		return
	}
	o.state.Status = "Event published."
}

// addRule prepends, most recent first, no deduplication.
func (o *Orchestrator) addRule(rule types.Rule) {
	o.state.Rules = append([]types.Rule{rule}, o.state.Rules...)
}

// clearTransfer wipes the transfer-related view state. The flow itself has
// already cleared its own session by the time this runs.
func (o *Orchestrator) clearTransfer() {
	o.state.PendingTransfer = types.TransferRequest{}
	o.state.AwaitingConfirmation = false
	o.state.OTP = types.OTPSession{}
	o.state.AwaitingOTP = false
}

// speak voices text best-effort. Failures are logged and change nothing.
func (o *Orchestrator) speak(ctx context.Context, text string) {
	if o.speech == nil {
		return
	}
	go func() {
		if _, err := o.speech.Synthesize(ctx, text); err != nil {
			slog.Debug("speech feedback failed", "error", err)
		}
	}()
}

// ruleSavedStatus renders the saved rule for the status line.
func ruleSavedStatus(rule types.Rule) string {
	if rule.Trigger != "" || rule.Action != "" {
		return fmt.Sprintf("Rule saved: when %s, %s.", rule.Trigger, rule.Action)
	}
	return "Rule saved."
}
