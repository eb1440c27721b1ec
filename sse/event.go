package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Event is one server-sent event. Data is encoded as JSON on the wire.
type Event struct {
	Name string
	Data any
}

// Publisher fans events out to subscribers of a topic.
type Publisher interface {
	Publish(topic string, ev Event)
}

// Write encodes ev in the text/event-stream format.
func Write(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.Name, err)
	}
	if ev.Name != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", ev.Name); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// Stream writes events to one HTTP response.
type Stream struct {
	w       io.Writer
	flusher http.Flusher
}

// NewStream sets the event-stream headers and lifts the server write
// deadline for the lifetime of the connection.
func NewStream(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported by %T", w)
	}

	// Ignored when the writer does not support deadlines.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, flusher: flusher}, nil
}

// Send writes ev and flushes it to the client.
func (s *Stream) Send(ev Event) error {
	if err := Write(s.w, ev); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// KeepAlive writes a comment line so proxies keep the connection open.
func (s *Stream) KeepAlive() error {
	if _, err := fmt.Fprintf(s.w, ": keepalive %d\n\n", time.Now().Unix()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
