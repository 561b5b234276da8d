// Package recognition defines the Client interface for the speech recognition
// collaborator.
//
// A recognition client delivers the ordered audio chunks of one recording
// session and finalizes the session into an authoritative transcript. The
// service's internal algorithms are opaque; only the request/response contract
// matters here. Chunk delivery is at-most-once and best-effort: a failed
// submit is reported to the caller, who logs and drops it without retrying.
//
// Implementations must be safe for concurrent use — chunk uploads for one
// session are fired without waiting for earlier ones to complete.
package recognition

import (
	"context"
	"errors"
)

// ErrMalformed is returned when the collaborator responds successfully at the
// transport level but the body is missing an expected field. Callers treat it
// exactly like a transport failure.
var ErrMalformed = errors.New("malformed recognition response")

// Client is the abstraction over the speech recognition backend.
type Client interface {
	// SubmitChunk delivers one audio chunk. session correlates all chunks of a
	// recording; seq is the 1-based position assigned at capture time. The
	// returned interim text is a provisional transcript for the session so far
	// and may be empty when the backend has nothing new to say.
	//
	// The backend is responsible for reassembly: chunk delivery order is not
	// guaranteed even though sequence numbers are assigned in capture order.
	SubmitChunk(ctx context.Context, session string, seq int, payload []byte) (interim string, err error)

	// Finalize signals end-of-session and returns the authoritative transcript
	// for all chunks received under session. Called exactly once per session.
	// A response without a transcript field returns an error wrapping
	// [ErrMalformed].
	Finalize(ctx context.Context, session string) (transcript string, err error)
}
