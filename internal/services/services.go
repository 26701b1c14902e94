// package services defines interface Converter for the conversion backend HTTP API
package services

import (
	"context"
	"io"
)

// Converter defines the client surface of the VB6 -> .NET converter backend.
type Converter interface {
	// SubmitConversion uploads a ZIP file or posts a GitHub link to POST /convert.
	// Blocks until the backend finishes (the endpoint is synchronous) or ctx expires.
	SubmitConversion(ctx context.Context, in ConversionInput) (*Submission, error)

	// OpenEventStream subscribes to GET /stream for live conversion events.
	// The stream stays open until Close is called or the server ends it.
	OpenEventStream(ctx context.Context) (Stream, error)

	// PollStatus fetches the full current state of a conversion. Idempotent.
	PollStatus(ctx context.Context, conversionID string) (*StatusSnapshot, error)

	// DownloadResult streams the converted archive to w and reports bytes written.
	DownloadResult(ctx context.Context, conversionID string, w io.Writer) (int64, error)

	// CheckHealth fetches GET /health.
	CheckHealth(ctx context.Context) (*Health, error)

	// Name returns the backend name for display.
	Name() string
}

// Stream is a handle to an open server-sent event subscription.
//
// Events are delivered in server-send order. The events channel is closed when
// the connection ends; a terminal read error (if any) is delivered on Errs
// before the close. Close is safe to call more than once.
type Stream interface {
	Events() <-chan Event
	Errs() <-chan error
	Close()
}

// ConversionInput carries exactly one submission source.
// ZipPath and GitHubLink are mutually exclusive; validation happens upstream
// in the session package before any transport call.
type ConversionInput struct {
	ZipPath    string
	GitHubLink string
}

// Submission is the response body of a successful POST /convert.
type Submission struct {
	Status       string  `json:"status"`
	ConversionID string  `json:"conversion_id"`
	Duration     float64 `json:"duration"`
	Message      string  `json:"message"`
	DownloadURL  string  `json:"download_url"`
}

// StepStatus is one pipeline stage's state within a status snapshot.
type StepStatus struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// StatusSnapshot is the response body of GET /conversion/status/{id}.
type StatusSnapshot struct {
	OverallProgress int                   `json:"overall_progress"`
	Steps           map[string]StepStatus `json:"steps"`
}

// Health is the response body of GET /health.
type Health struct {
	Status      string  `json:"status"`
	Timestamp   float64 `json:"timestamp"`
	AzureOpenAI string  `json:"azure_openai"`
	Error       string  `json:"error,omitempty"`
}

// ServiceInfo is the response body of GET / (service banner).
type ServiceInfo struct {
	Message   string  `json:"message"`
	Version   string  `json:"version"`
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
}
