package stream_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/aurafin/aura/pkg/collab/recognition/stream"
)

// wsMessage mirrors the control messages exchanged with the recognition
// service.
type wsMessage struct {
	Type       string  `json:"type"`
	Session    string  `json:"session,omitempty"`
	Seq        int     `json:"seq,omitempty"`
	Text       string  `json:"text,omitempty"`
	Transcript *string `json:"transcript,omitempty"`
}

// newRecognizerServer runs a scripted recognition endpoint: it acknowledges
// each chunk with an interim transcript of all text received so far and
// answers finalize with the final transcript.
func newRecognizerServer(t *testing.T, final string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()

		chunks := 0
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg wsMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "start":
				// nothing to do; the session is implicit in the socket
			case "chunk":
				if _, _, err := conn.Read(ctx); err != nil { // binary payload
					return
				}
				chunks++
				interim, _ := json.Marshal(wsMessage{
					Type: "interim",
					Text: fmt.Sprintf("interim after %d chunks", chunks),
				})
				if err := conn.Write(ctx, websocket.MessageText, interim); err != nil {
					return
				}
			case "finalize":
				ev, _ := json.Marshal(wsMessage{Type: "final", Transcript: &final})
				if err := conn.Write(ctx, websocket.MessageText, ev); err != nil {
					return
				}
			}
		}
	}))
}

func TestNew_EmptyURL_ReturnsError(t *testing.T) {
	_, err := stream.New("")
	if err == nil {
		t.Fatal("expected error for empty wsURL, got nil")
	}
}

func TestSubmitChunkAndFinalize_RoundTrip(t *testing.T) {
	srv := newRecognizerServer(t, "send five hundred to rahul")
	defer srv.Close()

	c, err := stream.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	// The first chunk dials the socket; its interim may still be empty
	// because interims arrive asynchronously.
	if _, err := c.SubmitChunk(ctx, "rec-1", 1, []byte("a")); err != nil {
		t.Fatalf("SubmitChunk 1: %v", err)
	}

	// Later chunks should observe an interim once the server has replied.
	// Poll briefly rather than assuming tight timing.
	var interim string
	deadline := time.Now().Add(2 * time.Second)
	for seq := 2; time.Now().Before(deadline); seq++ {
		interim, err = c.SubmitChunk(ctx, "rec-1", seq, []byte("b"))
		if err != nil {
			t.Fatalf("SubmitChunk %d: %v", seq, err)
		}
		if interim != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if interim == "" {
		t.Fatal("never observed an interim transcript")
	}

	got, err := c.Finalize(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got != "send five hundred to rahul" {
		t.Errorf("transcript = %q, want %q", got, "send five hundred to rahul")
	}
}

func TestFinalize_WithoutChunks_DialsAndCompletes(t *testing.T) {
	srv := newRecognizerServer(t, "")
	defer srv.Close()

	c, _ := stream.New(srv.URL)
	got, err := c.Finalize(context.Background(), "rec-2")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}
}

func TestSubmitChunk_DialFailure_ReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no websocket here", http.StatusBadRequest)
	}))
	defer srv.Close()

	c, _ := stream.New(srv.URL)
	if _, err := c.SubmitChunk(context.Background(), "rec-3", 1, []byte("a")); err == nil {
		t.Fatal("expected dial error, got nil")
	}
}

func TestFinalize_SessionsAreIndependent(t *testing.T) {
	srv := newRecognizerServer(t, "done")
	defer srv.Close()

	c, _ := stream.New(srv.URL)
	ctx := context.Background()

	if _, err := c.SubmitChunk(ctx, "rec-a", 1, []byte("a")); err != nil {
		t.Fatalf("SubmitChunk rec-a: %v", err)
	}
	if _, err := c.SubmitChunk(ctx, "rec-b", 1, []byte("b")); err != nil {
		t.Fatalf("SubmitChunk rec-b: %v", err)
	}

	if _, err := c.Finalize(ctx, "rec-a"); err != nil {
		t.Fatalf("Finalize rec-a: %v", err)
	}
	// rec-b's socket must still be usable after rec-a is gone.
	if _, err := c.SubmitChunk(ctx, "rec-b", 2, []byte("c")); err != nil {
		t.Fatalf("SubmitChunk rec-b after rec-a finalize: %v", err)
	}
	if _, err := c.Finalize(ctx, "rec-b"); err != nil {
		t.Fatalf("Finalize rec-b: %v", err)
	}
}
