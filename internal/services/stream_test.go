package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/convx/internal/shared"
)

// sseHandler writes a fixed sequence of SSE frames and keeps the connection
// open until the client disconnects.
func sseHandler(frames []string, hold bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		if !ok {
			panic("response writer must support flushing")
		}
		// Send the headers immediately so OpenEventStream's request does not
		// block when the frame list is empty.
		flusher.Flush()

		for _, frame := range frames {
			fmt.Fprint(w, frame)
			flusher.Flush()
		}

		if hold {
			<-r.Context().Done()
		}
	}
}

func collectEvents(t *testing.T, s Stream, want int) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for len(events) < want {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatalf("stream closed after %d events, wanted %d", len(events), want)
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out after %d events, wanted %d", len(events), want)
		}
	}
	return events
}

func TestEventStream(t *testing.T) {
	t.Run("Delivers Typed Events In Send Order", func(t *testing.T) {
		frames := []string{
			"event: state_update\ndata: {\"message\":\"Parser running\",\"level\":\"INFO\",\"stage\":\"parser\",\"agent\":\"Parser\",\"state\":\"Running\",\"progress\":20,\"details\":{\"stage_description\":\"Parsing VB6 code\"}}\n\n",
			"event: log\ndata: {\"message\":\"Parsed 14 procedures\",\"level\":\"INFO\",\"stage\":\"parser\"}\n\n",
			"event: ping\ndata: {\"message\":\"Keep-alive ping\",\"progress\":20}\n\n",
		}

		server := httptest.NewServer(sseHandler(frames, true))
		defer server.Close()

		srv := NewConverterService(server.URL, nil)
		stream, err := srv.OpenEventStream(context.Background())
		if err != nil {
			t.Fatalf("failed to open stream: %v", err)
		}
		defer stream.Close()

		events := collectEvents(t, stream, 3)

		if events[0].Type != EventStateUpdate {
			t.Errorf("expected first event state_update, got %s", events[0].Type)
		}
		if events[0].Stage != "parser" || events[0].State != "Running" {
			t.Errorf("unexpected first event payload: %+v", events[0])
		}
		if events[0].StageDescription() != "Parsing VB6 code" {
			t.Errorf("expected stage description, got %q", events[0].StageDescription())
		}
		if events[1].Type != EventLog {
			t.Errorf("expected second event log, got %s", events[1].Type)
		}
		if events[2].Type != EventPing {
			t.Errorf("expected third event ping, got %s", events[2].Type)
		}
	})

	t.Run("Malformed Payload Dropped Stream Continues", func(t *testing.T) {
		frames := []string{
			"event: log\ndata: {broken json\n\n",
			"event: log\ndata: {\"message\":\"still alive\"}\n\n",
		}

		server := httptest.NewServer(sseHandler(frames, true))
		defer server.Close()

		srv := NewConverterService(server.URL, nil)
		stream, err := srv.OpenEventStream(context.Background())
		if err != nil {
			t.Fatalf("failed to open stream: %v", err)
		}
		defer stream.Close()

		events := collectEvents(t, stream, 1)
		if events[0].Message != "still alive" {
			t.Errorf("expected the valid event, got %+v", events[0])
		}

		select {
		case err := <-stream.Errs():
			if !errors.Is(err, shared.ErrProtocol) {
				t.Errorf("expected ErrProtocol, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("expected a protocol error report")
		}
	})

	t.Run("Server Close Ends Events Channel", func(t *testing.T) {
		frames := []string{
			"event: log\ndata: {\"message\":\"one\"}\n\n",
		}

		server := httptest.NewServer(sseHandler(frames, false))
		defer server.Close()

		srv := NewConverterService(server.URL, nil)
		stream, err := srv.OpenEventStream(context.Background())
		if err != nil {
			t.Fatalf("failed to open stream: %v", err)
		}
		defer stream.Close()

		collectEvents(t, stream, 1)

		select {
		case _, ok := <-stream.Events():
			if ok {
				t.Error("expected events channel to close")
			}
		case <-time.After(5 * time.Second):
			t.Error("timed out waiting for channel close")
		}
	})

	t.Run("Close Is Idempotent", func(t *testing.T) {
		server := httptest.NewServer(sseHandler(nil, true))
		defer server.Close()

		srv := NewConverterService(server.URL, nil)
		stream, err := srv.OpenEventStream(context.Background())
		if err != nil {
			t.Fatalf("failed to open stream: %v", err)
		}

		stream.Close()
		stream.Close()
	})

	t.Run("Non-2xx Response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		srv := NewConverterService(server.URL, nil)
		if _, err := srv.OpenEventStream(context.Background()); !errors.Is(err, shared.ErrStream) {
			t.Errorf("expected ErrStream, got %v", err)
		}
	})
}
