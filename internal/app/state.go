package app

import "github.com/aurafin/aura/pkg/types"

// Phase is the recording side of the application lifecycle.
type Phase string

const (
	// PhaseIdle means no capture session exists.
	PhaseIdle Phase = "idle"

	// PhaseRecording means audio is being captured and chunks uploaded.
	PhaseRecording Phase = "recording"

	// PhaseFinalizing covers the window between stop and the final
	// transcript (or its failure).
	PhaseFinalizing Phase = "finalizing"

	// PhaseResolving covers intent resolution over a final transcript.
	PhaseResolving Phase = "resolving"
)

// State is the single process-wide application state. It is owned by the
// [Orchestrator]'s reducer and mutated nowhere else; consumers see copies.
type State struct {
	// Phase is the recording lifecycle position.
	Phase Phase

	// SessionID identifies the current (or just-finalized) recording.
	SessionID string

	// Transcript is the latest transcript text, interim or final.
	Transcript string

	// Balance is the last known account balance.
	Balance float64

	// Rules holds saved rules, most recent first, no deduplication.
	Rules []types.Rule

	// Status is the last user-visible status line, last-write-wins.
	Status string

	// PendingTransfer is the staged transfer while AwaitingConfirmation.
	PendingTransfer types.TransferRequest

	// AwaitingConfirmation is true while the user must accept or decline.
	AwaitingConfirmation bool

	// OTP is the outstanding one-time-passcode session, if AwaitingOTP.
	// The hint pre-fills the entry field; this is a demo affordance.
	OTP types.OTPSession

	// AwaitingOTP is true while the user must enter the code or cancel.
	AwaitingOTP bool

	// Simulation holds the messages from the last rule simulation run.
	Simulation []string
}

// clone returns a deep enough copy for consumers: slices are duplicated so a
// snapshot never aliases reducer-owned memory.
func (s State) clone() State {
	out := s
	out.Rules = append([]types.Rule(nil), s.Rules...)
	out.Simulation = append([]string(nil), s.Simulation...)
	return out
}
