// Package types defines the shared types used across all Aura packages.
//
// These types form the lingua franca between the capture layer, the
// collaborator clients, and the orchestrator. They are intentionally minimal —
// each package defines its own domain types, but cross-cutting data structures
// live here to avoid circular imports.
package types

import "time"

// Transcript is a speech recognition result for a recording session.
// Both interim (provisional) and final (authoritative) transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is the authoritative finalize-call result
	// or a provisional interim that a later interim may supersede.
	IsFinal bool

	// SessionID identifies the recording session this transcript belongs to.
	// Handlers use it to drop results that arrive after the session has ended.
	SessionID string
}

// Rule is an automation rule held by the rules collaborator.
// Rules are kept in an insertion-ordered list, most recent first, without
// deduplication — saying the same rule twice creates it twice.
type Rule struct {
	// ID is the collaborator-assigned rule identity.
	ID string `json:"id"`

	// Trigger is the condition half of the rule ("salary").
	Trigger string `json:"trigger"`

	// Action is the effect half of the rule ("move 20% to savings").
	Action string `json:"action"`
}

// TransferRequest describes an OTP-gated money movement submitted to the
// banking collaborator. It is created once the user confirms a transfer intent
// and consumed exactly once to obtain an OTP session.
type TransferRequest struct {
	FromAccount string  `json:"from_account"`
	ToName      string  `json:"to_name"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Reference   string  `json:"reference,omitempty"`
	RequireOTP  bool    `json:"require_otp"`
}

// OTPSession is the banking collaborator's handle for a pending OTP-gated
// transfer. At most one OTPSession may be outstanding at a time.
type OTPSession struct {
	// Token is the opaque session identifier to present on verification.
	Token string

	// Hint is the demo-visible passcode returned by the mock banking service.
	// It pre-fills the entry prompt. This is a deliberate demo affordance:
	// a real deployment must never transmit the OTP to the client.
	Hint string
}

// Transaction is the committed movement record returned by a successful
// OTP verification.
type Transaction struct {
	Amount float64 `json:"amount"`
	To     string  `json:"to"`
}

// TransferResult is the outcome of a successful verification: the account's
// new balance and the transaction that produced it.
type TransferResult struct {
	NewBalance  float64
	Transaction Transaction
}

// Chunk is one time-boxed slice of a live audio capture. Chunks are immutable
// once created and consumed by exactly one upload attempt.
type Chunk struct {
	// SessionID ties the chunk to its recording session.
	SessionID string

	// Seq is the 1-based sequence number, strictly increasing within a session.
	Seq int

	// Payload is the encoded audio data.
	Payload []byte

	// Captured marks when this chunk was produced, relative to session start.
	Captured time.Duration
}
