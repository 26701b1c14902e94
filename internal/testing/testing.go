// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/convx/internal/services"
)

// MockConverter is a test double for [services.Converter]. Behavior is
// scripted per call through the exported funcs; every transport method
// records how many times it was invoked.
type MockConverter struct {
	SubmitFunc   func(ctx context.Context, input services.ConversionInput) (*services.Submission, error)
	StreamFunc   func(ctx context.Context) (services.Stream, error)
	StatusFunc   func(ctx context.Context, conversionID string) (*services.StatusSnapshot, error)
	DownloadFunc func(ctx context.Context, conversionID string, w io.Writer) (int64, error)
	HealthFunc   func(ctx context.Context) (*services.Health, error)

	mu            sync.Mutex
	submitCalls   int
	streamCalls   int
	statusCalls   int
	downloadCalls int
}

func (m *MockConverter) SubmitConversion(ctx context.Context, input services.ConversionInput) (*services.Submission, error) {
	m.mu.Lock()
	m.submitCalls++
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, input)
	}
	return &services.Submission{Status: "success", ConversionID: "mock-conversion"}, nil
}

func (m *MockConverter) OpenEventStream(ctx context.Context) (services.Stream, error) {
	m.mu.Lock()
	m.streamCalls++
	m.mu.Unlock()
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx)
	}
	return NewMockStream(), nil
}

func (m *MockConverter) PollStatus(ctx context.Context, conversionID string) (*services.StatusSnapshot, error) {
	m.mu.Lock()
	m.statusCalls++
	m.mu.Unlock()
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, conversionID)
	}
	return &services.StatusSnapshot{}, nil
}

func (m *MockConverter) DownloadResult(ctx context.Context, conversionID string, w io.Writer) (int64, error) {
	m.mu.Lock()
	m.downloadCalls++
	m.mu.Unlock()
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, conversionID, w)
	}
	return 0, nil
}

func (m *MockConverter) CheckHealth(ctx context.Context) (*services.Health, error) {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return &services.Health{Status: "healthy"}, nil
}

func (m *MockConverter) Name() string { return "mock" }

func (m *MockConverter) SubmitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCalls
}

func (m *MockConverter) StreamCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCalls
}

func (m *MockConverter) StatusCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCalls
}

func (m *MockConverter) DownloadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.downloadCalls
}

// MockStream is a scriptable [services.Stream]. Tests push events with Emit,
// surface transport errors with Fail, and end the stream with End; Close
// records teardown so tests can assert the consumer released the stream.
type MockStream struct {
	events chan services.Event
	errs   chan error

	mu      sync.Mutex
	closed  bool
	endOnce sync.Once
}

func NewMockStream() *MockStream {
	return &MockStream{
		events: make(chan services.Event, 64),
		errs:   make(chan error, 8),
	}
}

func (m *MockStream) Events() <-chan services.Event { return m.events }

func (m *MockStream) Errs() <-chan error { return m.errs }

// Emit queues an event for the consumer.
func (m *MockStream) Emit(ev services.Event) { m.events <- ev }

// Fail queues a transport error.
func (m *MockStream) Fail(err error) { m.errs <- err }

// End closes the event channel, simulating the server ending the stream.
func (m *MockStream) End() {
	m.endOnce.Do(func() { close(m.events) })
}

func (m *MockStream) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.End()
}

// Closed reports whether the consumer tore the stream down.
func (m *MockStream) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
