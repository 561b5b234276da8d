// Package stream provides a WebSocket recognition client for voice API
// deployments that expose a streaming socket instead of the chunked HTTP
// endpoints. It implements the recognition.Client interface.
//
// One socket is opened per recording session on the first SubmitChunk. Each
// chunk is sent as a JSON header message followed by a binary payload message;
// the server pushes interim events as they are produced and a single final
// event in response to the finalize message. Because interims arrive
// asynchronously, SubmitChunk returns the most recent interim observed at the
// time of the call rather than blocking for one.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/aurafin/aura/pkg/collab/recognition"
)

// Compile-time interface assertion.
var _ recognition.Client = (*Client)(nil)

const defaultFinalizeTimeout = 30 * time.Second

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithFinalizeTimeout sets how long Finalize waits for the server's final
// transcript event before giving up. Defaults to 30 s.
func WithFinalizeTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.finalizeTimeout = d
	}
}

// Client implements recognition.Client over a WebSocket transport.
// It is safe for concurrent use; sessions are independent of each other.
type Client struct {
	wsURL           string
	finalizeTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Client that dials wsURL (e.g., "ws://localhost:8080/asr/ws").
// wsURL must be non-empty.
func New(wsURL string, opts ...Option) (*Client, error) {
	if wsURL == "" {
		return nil, errors.New("stream: wsURL must not be empty")
	}
	c := &Client{
		wsURL:           strings.TrimRight(wsURL, "/"),
		finalizeTimeout: defaultFinalizeTimeout,
		sessions:        make(map[string]*session),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// clientMessage is the JSON control message sent to the server. A "chunk"
// message is immediately followed by one binary message with the payload.
type clientMessage struct {
	Type    string `json:"type"` // "start", "chunk", or "finalize"
	Session string `json:"session"`
	Seq     int    `json:"seq,omitempty"`
}

// serverMessage is the JSON event pushed by the server.
type serverMessage struct {
	Type       string  `json:"type"` // "interim" or "final"
	Text       string  `json:"text,omitempty"`
	Transcript *string `json:"transcript,omitempty"`
}

// session is one open socket with its reader goroutine.
type session struct {
	conn *websocket.Conn

	mu          sync.Mutex
	lastInterim string

	finals chan serverMessage
	done   chan struct{}
	once   sync.Once
}

// SubmitChunk sends one chunk over the session's socket, dialing it first if
// this is the session's first chunk. The returned interim is the latest one
// pushed by the server so far; it lags chunk submission by whatever the
// network and the recognizer add.
func (c *Client) SubmitChunk(ctx context.Context, sessionID string, seq int, payload []byte) (string, error) {
	s, err := c.sessionFor(ctx, sessionID)
	if err != nil {
		return "", err
	}

	header, err := json.Marshal(clientMessage{Type: "chunk", Session: sessionID, Seq: seq})
	if err != nil {
		return "", fmt.Errorf("stream: marshal chunk header: %w", err)
	}
	if err := s.conn.Write(ctx, websocket.MessageText, header); err != nil {
		return "", fmt.Errorf("stream: write chunk header: %w", err)
	}
	if err := s.conn.Write(ctx, websocket.MessageBinary, payload); err != nil {
		return "", fmt.Errorf("stream: write chunk payload: %w", err)
	}

	s.mu.Lock()
	interim := s.lastInterim
	s.mu.Unlock()
	return interim, nil
}

// Finalize sends the finalize message and waits for the server's final event.
// The socket is closed and the session forgotten on every exit path.
func (c *Client) Finalize(ctx context.Context, sessionID string) (string, error) {
	s, err := c.sessionFor(ctx, sessionID)
	if err != nil {
		return "", err
	}
	defer c.drop(sessionID)

	msg, err := json.Marshal(clientMessage{Type: "finalize", Session: sessionID})
	if err != nil {
		return "", fmt.Errorf("stream: marshal finalize message: %w", err)
	}
	if err := s.conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return "", fmt.Errorf("stream: write finalize message: %w", err)
	}

	timeout := time.NewTimer(c.finalizeTimeout)
	defer timeout.Stop()

	select {
	case ev, ok := <-s.finals:
		if !ok {
			return "", errors.New("stream: connection closed before final transcript")
		}
		if ev.Transcript == nil {
			return "", fmt.Errorf("stream: %w: final event missing transcript field", recognition.ErrMalformed)
		}
		return *ev.Transcript, nil
	case <-timeout.C:
		return "", errors.New("stream: timed out waiting for final transcript")
	case <-ctx.Done():
		return "", fmt.Errorf("stream: finalize: %w", ctx.Err())
	}
}

// sessionFor returns the open session for sessionID, dialing a new socket and
// sending the start message when none exists yet.
func (c *Client) sessionFor(ctx context.Context, sessionID string) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[sessionID]; ok {
		return s, nil
	}

	conn, _, err := websocket.Dial(ctx, c.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("stream: dial %s: %w", c.wsURL, err)
	}
	// Streams carry whole-session audio; lift the default read limit.
	conn.SetReadLimit(1 << 22)

	start, err := json.Marshal(clientMessage{Type: "start", Session: sessionID})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "encode failure")
		return nil, fmt.Errorf("stream: marshal start message: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, start); err != nil {
		conn.Close(websocket.StatusInternalError, "write failure")
		return nil, fmt.Errorf("stream: write start message: %w", err)
	}

	s := &session{
		conn:   conn,
		finals: make(chan serverMessage, 1),
		done:   make(chan struct{}),
	}
	go s.readLoop()

	c.sessions[sessionID] = s
	return s, nil
}

// drop closes and forgets the session for sessionID, if any.
func (c *Client) drop(sessionID string) {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	delete(c.sessions, sessionID)
	c.mu.Unlock()
	if ok {
		s.close()
	}
}

// readLoop consumes server events until the socket closes, recording interims
// and forwarding the final event.
func (s *session) readLoop() {
	defer close(s.finals)
	for {
		_, data, err := s.conn.Read(context.Background())
		if err != nil {
			return
		}

		var ev serverMessage
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "interim":
			s.mu.Lock()
			s.lastInterim = ev.Text
			s.mu.Unlock()
		case "final":
			select {
			case s.finals <- ev:
			default:
			}
		}
	}
}

// close shuts the socket down exactly once.
func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close(websocket.StatusNormalClosure, "session complete")
	})
}
