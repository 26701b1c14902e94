package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/desertthunder/convx/internal/shared"
)

// Event stream event names emitted by GET /stream.
const (
	EventStateUpdate = "state_update"
	EventLog         = "log"
	EventPing        = "ping"
)

// Event is one server-sent event from the conversion backend.
//
// Type is the SSE event name; the remaining fields are the decoded JSON data
// payload. Not every field is set for every event type.
type Event struct {
	Type         string
	Message      string         `json:"message"`
	Level        string         `json:"level"`
	Timestamp    float64        `json:"timestamp"`
	Stage        string         `json:"stage"`
	Agent        string         `json:"agent"`
	State        string         `json:"state"`
	CurrentAgent string         `json:"current_agent"`
	Progress     int            `json:"progress"`
	Details      map[string]any `json:"details"`
}

// StageDescription returns the human-readable stage description carried in
// Details, if present.
func (e Event) StageDescription() string {
	if s, ok := e.Details["stage_description"].(string); ok {
		return s
	}
	return ""
}

// eventStream implements [Stream] over a text/event-stream HTTP response.
type eventStream struct {
	events    chan Event
	errs      chan error
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

var _ Stream = (*eventStream)(nil)

func (s *eventStream) Events() <-chan Event { return s.events }
func (s *eventStream) Errs() <-chan error   { return s.errs }

// Close tears down the underlying connection. The events channel closes once
// the reader goroutine observes the cancellation.
func (s *eventStream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.done)
	})
}

// OpenEventStream subscribes to GET /stream.
//
// Events are emitted on the returned handle's channel in server-send order.
// A payload that fails to decode is reported as [shared.ErrProtocol] on the
// error channel and dropped; the stream continues.
func (c *ConverterService) OpenEventStream(ctx context.Context) (Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.baseURL+"/stream", nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: stream returned status %d", shared.ErrStream, resp.StatusCode)
	}

	s := &eventStream{
		events: make(chan Event, 64),
		errs:   make(chan error, 8),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.read(resp)

	return s, nil
}

// read consumes the SSE wire format: "event:" and "data:" lines terminated by
// a blank line per event.
func (s *eventStream) read(resp *http.Response) {
	defer resp.Body.Close()
	defer close(s.events)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName, data string
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if data != "" {
				s.dispatch(eventName, data)
			}
			eventName, data = "", ""
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case strings.HasPrefix(line, ":"):
			// comment line, keep-alive padding
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-s.done:
			// closed locally, the read error is expected
		default:
			s.reportErr(fmt.Errorf("%w: %v", shared.ErrStream, err))
		}
	}
}

func (s *eventStream) dispatch(name, data string) {
	if name == "" {
		name = "message"
	}

	var ev Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		s.reportErr(fmt.Errorf("%w: malformed %s event payload: %v", shared.ErrProtocol, name, err))
		return
	}
	ev.Type = name

	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *eventStream) reportErr(err error) {
	select {
	case s.errs <- err:
	default:
		// error channel full, drop rather than block the reader
	}
}
