// Package nlu defines the Client interface for the intent classification
// collaborator.
//
// The NLU service turns a final transcript into a coarse intent plus slot
// data. Its classification quality is out of scope here — the resolver treats
// an unreachable or inconclusive NLU identically, falling through to the next
// interpretation strategy.
package nlu

import "context"

// Intent is the coarse classification of a user command.
type Intent string

const (
	// IntentTransfer is a money-movement command ("send 500 to Rohan").
	IntentTransfer Intent = "transfer"

	// IntentBalance is a balance query ("what is my balance").
	IntentBalance Intent = "balance"

	// IntentCreateRule is a conditional automation ("if salary then ...").
	IntentCreateRule Intent = "create_rule"

	// IntentUnknown is anything the classifier could not place.
	IntentUnknown Intent = "unknown"
)

// Classification is the parsed result for one transcript. Slot fields are
// populated only when relevant to the intent.
type Classification struct {
	// Intent is the coarse command class.
	Intent Intent

	// Amount is the transfer amount when Intent is IntentTransfer. Nil when
	// the classifier found a transfer verb but no parseable amount.
	Amount *float64

	// Name is the payee name when Intent is IntentTransfer.
	Name string

	// Trigger and Action are the rule halves when Intent is IntentCreateRule.
	Trigger string
	Action  string

	// Raw echoes the transcript the classification was derived from.
	Raw string
}

// Client is the abstraction over the NLU backend.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Parse classifies text into an intent with slot data. An unknown intent
	// is a valid result, not an error; errors indicate the collaborator was
	// unreachable or returned an unusable body.
	Parse(ctx context.Context, text string) (Classification, error)
}
