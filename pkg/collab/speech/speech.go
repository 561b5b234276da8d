// Package speech defines the Synthesizer interface for the text-to-speech
// collaborator.
//
// Speech feedback is strictly best-effort: the orchestrator fires a synthesis
// request after a terminal outcome and moves on. A failed synthesis is logged
// and never surfaces as an application error or alters application state.
// Playback of the returned audio URL belongs to the UI surface, not here.
package speech

import "context"

// Synthesizer is the abstraction over the TTS backend.
//
// Implementations must be safe for concurrent use.
type Synthesizer interface {
	// Synthesize renders text to speech and returns a URL (possibly a data
	// URL) for the audio. An empty URL with nil error means the backend had
	// nothing to play.
	Synthesize(ctx context.Context, text string) (audioURL string, err error)
}
