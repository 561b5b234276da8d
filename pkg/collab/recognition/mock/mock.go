// Package mock provides an in-memory mock implementation of the
// [recognition.Client] interface for use in unit tests.
//
// The mock is safe for concurrent use. It records every call so that tests
// can assert on sequence numbers and call counts, and exposes exported fields
// controlling the returned values.
package mock

import (
	"context"
	"sync"

	"github.com/aurafin/aura/pkg/collab/recognition"
)

// Compile-time interface assertion.
var _ recognition.Client = (*Client)(nil)

// SubmittedChunk records the arguments of one SubmitChunk call.
type SubmittedChunk struct {
	Session string
	Seq     int
	Payload []byte
}

// Client is a mock implementation of [recognition.Client].
// Set the exported Result/Error fields before use; inspect the recorded
// fields after.
type Client struct {
	mu sync.Mutex

	// InterimResults maps a sequence number to the interim text SubmitChunk
	// returns for it. Sequence numbers not present return an empty interim.
	InterimResults map[int]string

	// SubmitError is returned by SubmitChunk when non-nil. Set SubmitErrorSeqs
	// to fail only specific sequence numbers.
	SubmitError error

	// SubmitErrorSeqs limits SubmitError to the listed sequence numbers.
	// Empty means every call fails while SubmitError is non-nil.
	SubmitErrorSeqs map[int]bool

	// FinalizeResult is the transcript returned by Finalize.
	FinalizeResult string

	// FinalizeError is returned by Finalize when non-nil.
	FinalizeError error

	// Submitted holds every SubmitChunk call in order.
	Submitted []SubmittedChunk

	// FinalizedSessions holds the session argument of every Finalize call.
	FinalizedSessions []string
}

// SubmitChunk implements [recognition.Client].
func (c *Client) SubmitChunk(_ context.Context, session string, seq int, payload []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Submitted = append(c.Submitted, SubmittedChunk{Session: session, Seq: seq, Payload: payload})

	if c.SubmitError != nil && (len(c.SubmitErrorSeqs) == 0 || c.SubmitErrorSeqs[seq]) {
		return "", c.SubmitError
	}
	return c.InterimResults[seq], nil
}

// Finalize implements [recognition.Client].
func (c *Client) Finalize(_ context.Context, session string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FinalizedSessions = append(c.FinalizedSessions, session)
	if c.FinalizeError != nil {
		return "", c.FinalizeError
	}
	return c.FinalizeResult, nil
}

// FinalizeCount returns how many times Finalize was called.
func (c *Client) FinalizeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.FinalizedSessions)
}

// SubmittedSeqs returns the sequence numbers of all submitted chunks in call
// order.
func (c *Client) SubmittedSeqs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	seqs := make([]int, len(c.Submitted))
	for i, s := range c.Submitted {
		seqs[i] = s.Seq
	}
	return seqs
}
