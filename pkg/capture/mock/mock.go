// Package mock provides in-memory mock implementations of the
// [capture.Source] and [capture.Stream] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so that
// tests can assert on call counts, and they expose exported fields that the
// test can set to control return values.
//
// Typical usage:
//
//	frames := make(chan capture.Frame, 4)
//	stream := &mock.Stream{FramesResult: frames}
//	source := &mock.Source{OpenResult: stream}
//	st, err := source.Open(ctx)
package mock

import (
	"context"
	"sync"

	"github.com/aurafin/aura/pkg/capture"
)

// ─── Stream ───────────────────────────────────────────────────────────────────

// Stream is a mock implementation of [capture.Stream].
// Set the exported Result fields before use; inspect the Call* fields after.
type Stream struct {
	mu sync.Mutex

	// FramesResult is returned by [Stream.Frames].
	FramesResult chan capture.Frame

	// CloseError is returned by the first call to [Stream.Close].
	CloseError error

	// CallCountFrames records how many times Frames was called.
	CallCountFrames int

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// Frames implements [capture.Stream]. Returns FramesResult.
func (s *Stream) Frames() <-chan capture.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountFrames++
	return s.FramesResult
}

// Close implements [capture.Stream]. The first call closes FramesResult (if
// non-nil) and returns CloseError; subsequent calls are no-ops returning nil,
// matching the idempotence contract.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if s.CallCountClose > 1 {
		return nil
	}
	if s.FramesResult != nil {
		close(s.FramesResult)
	}
	return s.CloseError
}

// ─── Source ───────────────────────────────────────────────────────────────────

// Source is a mock implementation of [capture.Source].
type Source struct {
	mu sync.Mutex

	// OpenResult is returned by [Source.Open] when OpenError is nil.
	OpenResult capture.Stream

	// OpenError is returned by [Source.Open]. Wrap capture.ErrUnavailable to
	// simulate a denied device.
	OpenError error

	// CallCountOpen records how many times Open was called.
	CallCountOpen int
}

// Open implements [capture.Source].
func (s *Source) Open(_ context.Context) (capture.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountOpen++
	if s.OpenError != nil {
		return nil, s.OpenError
	}
	return s.OpenResult, nil
}
