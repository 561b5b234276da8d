// Package mock provides an in-memory mock implementation of the
// [speech.Synthesizer] interface for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/aurafin/aura/pkg/collab/speech"
)

// Compile-time interface assertion.
var _ speech.Synthesizer = (*Synthesizer)(nil)

// Synthesizer is a mock implementation of [speech.Synthesizer].
type Synthesizer struct {
	mu sync.Mutex

	// SynthesizeResult is the audio URL returned when SynthesizeError is nil.
	SynthesizeResult string

	// SynthesizeError is returned by Synthesize when non-nil.
	SynthesizeError error

	// Spoken records the text argument of every Synthesize call.
	Spoken []string
}

// Synthesize implements [speech.Synthesizer].
func (s *Synthesizer) Synthesize(_ context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Spoken = append(s.Spoken, text)
	if s.SynthesizeError != nil {
		return "", s.SynthesizeError
	}
	return s.SynthesizeResult, nil
}

// SpokenCount returns how many times Synthesize was called.
func (s *Synthesizer) SpokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Spoken)
}
