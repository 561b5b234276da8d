// Package capture defines the interfaces for audio capture sources feeding the
// Aura recording pipeline.
//
// The two abstractions are:
//
//   - [Source] — acquires the capture device and returns a [Stream].
//   - [Stream] — an open capture delivering time-boxed audio frames until closed.
//
// Implementations are provided by adapter packages (capture/wavfile for file
// playback, platform microphone adapters externally). The interfaces are
// intentionally narrow to keep the recorder decoupled from device details.
//
// This package lives under pkg/ because external code (alternative capture
// adapters) is expected to implement [Source] and [Stream].
package capture

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned by [Source.Open] when the capture device is
// denied, missing, or otherwise cannot be acquired. Starting a recording is
// the only operation this is fatal to; callers may retry a later start.
var ErrUnavailable = errors.New("capture device unavailable")

// Frame is one time-boxed slice of captured audio.
type Frame struct {
	// Data is the encoded audio payload for this frame.
	Data []byte

	// Timestamp marks when the frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Stream is an open audio capture.
//
// A Stream is obtained from [Source.Open] and delivers frames until Close is
// called or the underlying device stops. Implementations must be safe for
// concurrent use.
type Stream interface {
	// Frames returns the read-only channel of captured frames. The channel is
	// closed when the stream ends, whether by Close or by the device itself.
	Frames() <-chan Frame

	// Close releases the underlying device resources. It is safe to call Close
	// more than once; subsequent calls are no-ops and return nil.
	Close() error
}

// Source is the entry point for an audio capture provider.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Open acquires the capture device and starts delivering frames at the
	// source's native cadence. Returns an error wrapping [ErrUnavailable] when
	// the device cannot be acquired.
	Open(ctx context.Context) (Stream, error)
}
