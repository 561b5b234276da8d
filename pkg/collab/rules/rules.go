// Package rules defines the Client interface for the rule persistence
// collaborator.
//
// Two creation paths exist. Create persists a literal "if ... then ..." text,
// with the service doing the trigger/action split. ParseAndCreate is the
// voice shortcut: the service both interprets a raw transcript and persists
// the resulting rule in one call, returning ErrNotParsed when it declines —
// the resolver then falls through to its next strategy.
package rules

import (
	"context"
	"errors"

	"github.com/aurafin/aura/pkg/types"
)

// ErrNotParsed is returned by ParseAndCreate when the collaborator answered
// but did not create a rule (it could not interpret the transcript). Callers
// treat it like any other strategy miss.
var ErrNotParsed = errors.New("transcript not parsed into a rule")

// Client is the abstraction over the rules backend.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Create persists text as a rule. The text must follow the
	// "if <trigger> then <action>" shape; the service rejects anything else.
	Create(ctx context.Context, text string) (types.Rule, error)

	// ParseAndCreate asks the service to interpret transcript and persist the
	// resulting rule in a single call. Returns an error wrapping
	// [ErrNotParsed] when the service could not interpret it.
	ParseAndCreate(ctx context.Context, transcript string) (types.Rule, error)

	// Simulate feeds a synthetic event to the rules engine and returns the
	// messages produced by any rules that fired.
	Simulate(ctx context.Context, event map[string]string) ([]string, error)

	// TriggerTransaction publishes a demo transaction event so saved rules
	// can fire against live data rather than a simulation.
	TriggerTransaction(ctx context.Context) error
}
