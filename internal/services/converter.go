// VB6 -> .NET converter backend [Converter] implementation
//
// Communicates with the FastAPI conversion service. Submission is a multipart
// POST carrying either a ZIP upload or a GitHub repository link; progress is
// observed separately via the SSE stream or the status endpoint.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/desertthunder/convx/internal/shared"
)

const defaultConverterBaseURL string = "http://localhost:8000"

// ConverterService implements [Converter] against the conversion backend.
type ConverterService struct {
	baseURL    string
	httpClient *http.Client
}

// NewConverterService creates a new converter backend client.
func NewConverterService(baseURL string, client *http.Client) *ConverterService {
	if baseURL == "" {
		baseURL = defaultConverterBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &ConverterService{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// Name returns the backend name.
func (c *ConverterService) Name() string {
	return "VB6 Converter"
}

// SubmitConversion issues the multipart POST /convert request.
//
// Returns [shared.ErrNetwork] when the connection fails, [shared.ErrValidation]
// when the backend rejects the input with a structured error body, and
// [shared.ErrProtocol] when the response cannot be parsed.
func (c *ConverterService) SubmitConversion(ctx context.Context, in ConversionInput) (*Submission, error) {
	body, contentType, err := encodeConversionInput(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return nil, fmt.Errorf("%w: %s (status %d)", shared.ErrValidation, errResp.Detail, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status %d with unreadable error body", shared.ErrProtocol, resp.StatusCode)
	}

	var sub Submission
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("%w: failed to decode submission response: %v", shared.ErrProtocol, err)
	}
	if sub.ConversionID == "" {
		return nil, fmt.Errorf("%w: submission response missing conversion_id", shared.ErrProtocol)
	}

	return &sub, nil
}

// encodeConversionInput builds the multipart body for POST /convert.
func encodeConversionInput(in ConversionInput) (io.Reader, string, error) {
	if in.ZipPath == "" && in.GitHubLink == "" {
		return nil, "", fmt.Errorf("%w: no input provided", shared.ErrValidation)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()

		if in.GitHubLink != "" {
			if err = mw.WriteField("github_link", in.GitHubLink); err != nil {
				return
			}
		} else {
			var f *os.File
			if f, err = os.Open(in.ZipPath); err != nil {
				return
			}
			defer f.Close()

			var part io.Writer
			if part, err = mw.CreateFormFile("zip_file", filepath.Base(in.ZipPath)); err != nil {
				return
			}
			if _, err = io.Copy(part, f); err != nil {
				return
			}
		}

		err = mw.Close()
	}()

	return pr, mw.FormDataContentType(), nil
}

// PollStatus fetches GET /conversion/status/{id}. An empty id asks for the
// backend's current conversion; the server runs a single conversion at a
// time, so the unqualified endpoint is unambiguous.
func (c *ConverterService) PollStatus(ctx context.Context, conversionID string) (*StatusSnapshot, error) {
	var snap StatusSnapshot
	endpoint := "/conversion/status"
	if conversionID != "" {
		endpoint = fmt.Sprintf("/conversion/status/%s", conversionID)
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DownloadResult fetches GET /download/{id} and copies the archive to w.
func (c *ConverterService) DownloadResult(ctx context.Context, conversionID string, w io.Writer) (int64, error) {
	endpoint := fmt.Sprintf("%s/download/%s", c.baseURL, conversionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %s", shared.ErrConversionNotFound, conversionID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: download failed with status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: interrupted download: %v", shared.ErrNetwork, err)
	}

	return n, nil
}

// CheckHealth fetches GET /health.
func (c *ConverterService) CheckHealth(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.doRequest(ctx, http.MethodGet, "/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// ServiceInfo fetches the GET / service banner.
func (c *ConverterService) ServiceInfo(ctx context.Context) (*ServiceInfo, error) {
	var info ServiceInfo
	if err := c.doRequest(ctx, http.MethodGet, "/", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *ConverterService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrConversionNotFound, endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: %s (status %d)", shared.ErrAPIRequest, errResp.Detail, resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrProtocol, err)
		}
	}

	return nil
}
