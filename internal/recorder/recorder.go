// Package recorder manages the capture side of a voice interaction: it owns
// the audio session lifecycle, pulls frames from a [capture.Source], assigns
// chunk sequence numbers, and ships chunks to the recognition service while
// the user is still speaking.
//
// Only one recording can be active at a time (enforced by mutex). Sequence
// numbers are assigned serially by the pump goroutine, so chunks for a
// session are numbered 1..N with no gaps or reordering even though the
// uploads themselves run concurrently.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aurafin/aura/internal/observe"
	"github.com/aurafin/aura/pkg/capture"
	"github.com/aurafin/aura/pkg/collab/recognition"
	"github.com/aurafin/aura/pkg/types"
)

// ErrActive is returned by [Recorder.Start] when a recording session is
// already in progress.
var ErrActive = errors.New("recorder: a recording is already active")

// ErrNotRecording is returned by [Recorder.Stop] when no recording is in
// progress. Repeated Stop calls after the first are answered with this error
// rather than a second finalization.
var ErrNotRecording = errors.New("recorder: no recording in progress")

// Interim is a provisional transcript fragment produced while audio is still
// being captured. SessionID identifies the recording that produced it so
// consumers can discard leftovers from a previous session.
type Interim struct {
	SessionID string
	Seq       int
	Text      string
}

// Option is a functional option for configuring a [Recorder].
type Option func(*Recorder)

// WithInterims registers fn to receive interim transcripts as chunk uploads
// complete. fn is called from upload goroutines and must be safe for
// concurrent use.
func WithInterims(fn func(Interim)) Option {
	return func(r *Recorder) {
		r.onInterim = fn
	}
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// Recorder drives a single recording session at a time against a capture
// source and a recognition client. All exported methods are safe for
// concurrent use.
type Recorder struct {
	source    capture.Source
	client    recognition.Client
	onInterim func(Interim)
	metrics   *observe.Metrics

	mu  sync.Mutex
	cur *session
}

// session holds the state of one active recording.
type session struct {
	id       string
	stream   capture.Stream
	cancel   context.CancelFunc
	pumpDone chan struct{}
	uploads  sync.WaitGroup
}

// New creates a [Recorder] reading audio from source and uploading chunks
// through client.
func New(source capture.Source, client recognition.Client, opts ...Option) *Recorder {
	r := &Recorder{
		source: source,
		client: client,
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Start opens the capture source and begins streaming chunks to the
// recognition service. It returns the new session ID. Returns [ErrActive] if
// a recording is already in progress; the capture source stays untouched in
// that case.
func (r *Recorder) Start(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cur != nil {
		return "", ErrActive
	}

	stream, err := r.source.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("recorder: open capture source: %w", err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:       "rec-" + ulid.Make().String(),
		stream:   stream,
		cancel:   cancel,
		pumpDone: make(chan struct{}),
	}
	r.cur = s

	r.metrics.ActiveRecordings.Add(ctx, 1)
	slog.Info("recording started", "session", s.id)

	go r.pump(pumpCtx, s)
	return s.id, nil
}

// pump reads frames until the stream closes, assigning sequence numbers
// serially and dispatching one upload goroutine per chunk.
func (r *Recorder) pump(ctx context.Context, s *session) {
	defer close(s.pumpDone)

	seq := 0
	for frame := range s.stream.Frames() {
		if ctx.Err() != nil {
			return
		}
		seq++
		chunk := types.Chunk{
			SessionID: s.id,
			Seq:       seq,
			Payload:   frame.Data,
			Captured:  frame.Timestamp,
		}
		s.uploads.Add(1)
		go r.upload(ctx, s, chunk)
	}
}

// upload ships a single chunk. Failures are logged and counted but never
// stop the recording; the sequence number stays consumed.
func (r *Recorder) upload(ctx context.Context, s *session, chunk types.Chunk) {
	defer s.uploads.Done()

	start := time.Now()
	interim, err := r.client.SubmitChunk(ctx, chunk.SessionID, chunk.Seq, chunk.Payload)
	r.metrics.ChunkUploadDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("chunk upload failed",
				"session", chunk.SessionID, "seq", chunk.Seq, "error", err)
		}
		r.metrics.RecordCollaboratorRequest(ctx, "recognition", "chunk", "error")
		return
	}
	r.metrics.RecordCollaboratorRequest(ctx, "recognition", "chunk", "ok")

	if interim != "" && r.onInterim != nil {
		r.onInterim(Interim{SessionID: chunk.SessionID, Seq: chunk.Seq, Text: interim})
	}
}

// Stop ends the active recording and finalizes the transcript, returned as
// the session's authoritative [types.Transcript]. The capture stream is
// closed, in-flight uploads are drained, and exactly one Finalize call is
// made per session. Returns [ErrNotRecording] when nothing is being recorded,
// so a second Stop can never trigger a second finalization.
func (r *Recorder) Stop(ctx context.Context) (types.Transcript, error) {
	r.mu.Lock()
	s := r.cur
	if s == nil {
		r.mu.Unlock()
		return types.Transcript{}, ErrNotRecording
	}
	r.cur = nil
	r.mu.Unlock()

	// Closing the stream ends the frame channel, which stops the pump.
	if err := s.stream.Close(); err != nil {
		slog.Warn("closing capture stream", "session", s.id, "error", err)
	}
	<-s.pumpDone

	// Let in-flight uploads finish before finalizing so the service has
	// seen every chunk it is going to get.
	s.uploads.Wait()
	s.cancel()

	r.metrics.ActiveRecordings.Add(ctx, -1)

	start := time.Now()
	text, err := r.client.Finalize(ctx, s.id)
	r.metrics.FinalizeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		r.metrics.RecordCollaboratorRequest(ctx, "recognition", "finalize", "error")
		return types.Transcript{}, fmt.Errorf("recorder: finalize session %s: %w", s.id, err)
	}
	r.metrics.RecordCollaboratorRequest(ctx, "recognition", "finalize", "ok")

	slog.Info("recording finalized", "session", s.id, "transcript_len", len(text))
	return types.Transcript{Text: text, IsFinal: true, SessionID: s.id}, nil
}

// Active reports whether a recording is currently in progress, along with
// its session ID.
func (r *Recorder) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur == nil {
		return "", false
	}
	return r.cur.id, true
}

// Close abandons any active recording without finalizing: the stream is
// closed, pending uploads are cancelled, and no transcript is produced.
// Close is safe to call when idle.
func (r *Recorder) Close() error {
	r.mu.Lock()
	s := r.cur
	if s == nil {
		r.mu.Unlock()
		return nil
	}
	r.cur = nil
	r.mu.Unlock()

	s.cancel()
	err := s.stream.Close()
	<-s.pumpDone
	s.uploads.Wait()

	r.metrics.ActiveRecordings.Add(context.Background(), -1)
	slog.Info("recording abandoned", "session", s.id)
	return err
}
