// Package mock provides an in-memory mock implementation of the
// [rules.Client] interface for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/aurafin/aura/pkg/collab/rules"
	"github.com/aurafin/aura/pkg/types"
)

// Compile-time interface assertion.
var _ rules.Client = (*Client)(nil)

// Client is a mock implementation of [rules.Client].
// Set the exported Result/Error fields before use; inspect the recorded
// fields after.
type Client struct {
	mu sync.Mutex

	// CreateResult is returned by Create when CreateError is nil.
	CreateResult types.Rule

	// CreateError is returned by Create when non-nil.
	CreateError error

	// ParseAndCreateResult is returned by ParseAndCreate when
	// ParseAndCreateError is nil.
	ParseAndCreateResult types.Rule

	// ParseAndCreateError is returned by ParseAndCreate when non-nil.
	// Defaults in tests are usually rules.ErrNotParsed to skip the shortcut.
	ParseAndCreateError error

	// SimulateResult is returned by Simulate when SimulateError is nil.
	SimulateResult []string

	// SimulateError is returned by Simulate when non-nil.
	SimulateError error

	// TriggerError is returned by TriggerTransaction when non-nil.
	TriggerError error

	// Triggers counts TriggerTransaction calls.
	Triggers int

	// CreatedTexts records the text argument of every Create call.
	CreatedTexts []string

	// ParsedTranscripts records the transcript argument of every
	// ParseAndCreate call.
	ParsedTranscripts []string

	// SimulatedEvents records the event argument of every Simulate call.
	SimulatedEvents []map[string]string
}

// Create implements [rules.Client].
func (c *Client) Create(_ context.Context, text string) (types.Rule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CreatedTexts = append(c.CreatedTexts, text)
	if c.CreateError != nil {
		return types.Rule{}, c.CreateError
	}
	return c.CreateResult, nil
}

// ParseAndCreate implements [rules.Client].
func (c *Client) ParseAndCreate(_ context.Context, transcript string) (types.Rule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ParsedTranscripts = append(c.ParsedTranscripts, transcript)
	if c.ParseAndCreateError != nil {
		return types.Rule{}, c.ParseAndCreateError
	}
	return c.ParseAndCreateResult, nil
}

// Simulate implements [rules.Client].
func (c *Client) Simulate(_ context.Context, event map[string]string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SimulatedEvents = append(c.SimulatedEvents, event)
	if c.SimulateError != nil {
		return nil, c.SimulateError
	}
	return c.SimulateResult, nil
}

// TriggerTransaction implements [rules.Client].
func (c *Client) TriggerTransaction(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Triggers++
	return c.TriggerError
}

// TriggerCount returns how many times TriggerTransaction was called.
func (c *Client) TriggerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Triggers
}

// CreateCount returns how many times Create was called.
func (c *Client) CreateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.CreatedTexts)
}
