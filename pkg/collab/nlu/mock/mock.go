// Package mock provides an in-memory mock implementation of the [nlu.Client]
// interface for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/aurafin/aura/pkg/collab/nlu"
)

// Compile-time interface assertion.
var _ nlu.Client = (*Client)(nil)

// Client is a mock implementation of [nlu.Client].
// Set the exported Result/Error fields before use; inspect the recorded
// fields after.
type Client struct {
	mu sync.Mutex

	// ParseResult is returned by Parse when ParseError is nil.
	ParseResult nlu.Classification

	// ParseError is returned by Parse when non-nil.
	ParseError error

	// ParsedTexts records the text argument of every Parse call.
	ParsedTexts []string
}

// Parse implements [nlu.Client].
func (c *Client) Parse(_ context.Context, text string) (nlu.Classification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ParsedTexts = append(c.ParsedTexts, text)
	if c.ParseError != nil {
		return nlu.Classification{}, c.ParseError
	}
	return c.ParseResult, nil
}

// ParseCount returns how many times Parse was called.
func (c *Client) ParseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ParsedTexts)
}
