// Package wavfile provides a file-backed capture source that plays a WAV
// recording back at live cadence. It implements the capture.Source interface
// and stands in for a microphone in demos and integration tests: each emitted
// frame covers the configured interval of audio and frames are delivered one
// interval apart, so downstream components observe the same timing a real
// device would produce.
package wavfile

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aurafin/aura/pkg/capture"
)

// Compile-time interface assertion.
var _ capture.Source = (*Source)(nil)

const defaultInterval = time.Second

// Option is a functional option for configuring a Source.
type Option func(*Source)

// WithInterval sets the duration of audio covered by each emitted frame and
// the delay between frames. Defaults to 1 s.
func WithInterval(d time.Duration) Option {
	return func(s *Source) {
		s.interval = d
	}
}

// WithoutPacing disables the inter-frame delay so all frames are emitted as
// fast as the consumer drains them. Useful in tests.
func WithoutPacing() Option {
	return func(s *Source) {
		s.paced = false
	}
}

// Source implements capture.Source backed by a WAV file on disk.
// The file is re-read on every Open, so one Source can serve many sessions.
type Source struct {
	path     string
	interval time.Duration
	paced    bool
}

// New creates a Source that reads the WAV file at path. The file is not
// touched until Open is called; a missing or malformed file surfaces there
// as capture.ErrUnavailable.
func New(path string, opts ...Option) *Source {
	s := &Source{
		path:     path,
		interval: defaultInterval,
		paced:    true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open reads and validates the WAV file, then starts a goroutine that emits
// interval-sized PCM frames at recording cadence. Errors acquiring the file
// wrap capture.ErrUnavailable so callers can treat them like a denied device.
func (s *Source) Open(ctx context.Context) (capture.Stream, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("wavfile: %w: %v", capture.ErrUnavailable, err)
	}

	info, err := parseWAV(data)
	if err != nil {
		return nil, fmt.Errorf("wavfile: %w: %v", capture.ErrUnavailable, err)
	}

	pcm := data[info.DataOffset:]
	bytesPerFrame := int(int64(info.ByteRate) * int64(s.interval) / int64(time.Second))
	if bytesPerFrame <= 0 {
		return nil, fmt.Errorf("wavfile: %w: zero byte rate", capture.ErrUnavailable)
	}

	st := &stream{
		frames: make(chan capture.Frame),
		done:   make(chan struct{}),
	}

	go st.emit(ctx, pcm, bytesPerFrame, s.interval, s.paced)

	return st, nil
}

// stream is a live playback of one WAV file. It implements capture.Stream.
type stream struct {
	frames chan capture.Frame
	done   chan struct{}
	once   sync.Once
}

// Frames returns the channel of playback frames. The channel is closed when
// the file is exhausted or the stream is closed.
func (st *stream) Frames() <-chan capture.Frame { return st.frames }

// Close stops playback and releases the stream. Calling Close more than once
// is safe and returns nil.
func (st *stream) Close() error {
	st.once.Do(func() { close(st.done) })
	return nil
}

// emit walks the PCM buffer frame by frame, pacing deliveries when requested.
// It owns the frames channel and closes it on every exit path.
func (st *stream) emit(ctx context.Context, pcm []byte, bytesPerFrame int, interval time.Duration, paced bool) {
	defer close(st.frames)

	var elapsed time.Duration
	for off := 0; off < len(pcm); off += bytesPerFrame {
		end := min(off+bytesPerFrame, len(pcm))

		if paced {
			select {
			case <-time.After(interval):
			case <-st.done:
				return
			case <-ctx.Done():
				return
			}
		}

		frame := capture.Frame{
			Data:      pcm[off:end],
			Timestamp: elapsed,
		}
		select {
		case st.frames <- frame:
		case <-st.done:
			return
		case <-ctx.Done():
			return
		}
		elapsed += interval
	}
}

// wavInfo holds the format metadata extracted from a RIFF/WAVE header.
type wavInfo struct {
	DataOffset int // byte offset of the first PCM sample
	SampleRate int // samples per second
	Channels   int // 1 = mono, 2 = stereo
	ByteRate   int // bytes of PCM per second
}

// parseWAV scans the RIFF/WAVE container in wav and returns the data offset
// and audio format from the "fmt " sub-chunk. Walking the chunks is more
// robust than hardcoding a 44-byte offset because the fmt chunk size varies.
func parseWAV(wav []byte) (wavInfo, error) {
	if len(wav) < 12 {
		return wavInfo{}, errors.New("file too short to be a valid RIFF container")
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return wavInfo{}, errors.New("missing RIFF/WAVE header")
	}

	var info wavInfo
	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && offset+8+16 <= len(wav) {
				fmtData := wav[offset+8:]
				info.Channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				info.ByteRate = int(binary.LittleEndian.Uint32(fmtData[8:12]))
			}
		case "data":
			info.DataOffset = offset + 8
			if info.ByteRate == 0 {
				return wavInfo{}, errors.New("data chunk precedes fmt chunk")
			}
			return info, nil
		}

		// Chunks are word-aligned: pad by 1 if the size is odd.
		offset += 8 + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return wavInfo{}, errors.New("missing data chunk")
}
