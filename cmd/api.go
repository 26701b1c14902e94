package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/desertthunder/convx/internal/services"
	"github.com/desertthunder/convx/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the conversion backend
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	useJSON := cmd.Bool("json")

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if useJSON {
		if resp.IsJSON {
			return r.writeJSON(resp.JSONData, false)
		}
		r.output.Write(resp.Body)
		r.output.Write([]byte("\n"))
		return nil
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, true)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIPost makes a direct POST request to the conversion backend
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	r.logger.Info("POST request", "path", path)

	var jsonTest any
	if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	resp, err := r.api.Post(ctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, true)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIDump fetches and displays the backend's diagnostic surface.
func (r *Runner) APIDump(ctx context.Context, cmd *cli.Command) error {
	pretty := cmd.Bool("pretty")
	save := cmd.Bool("save")

	r.logger.Info("dumping backend state")
	r.writePlain("Fetching backend state...\n\n")

	type DumpData struct {
		Banner any   `json:"banner,omitempty"`
		Health any   `json:"health,omitempty"`
		Errors []any `json:"errors,omitempty"`
	}

	dump := DumpData{
		Errors: []any{},
	}

	r.writePlain("Fetching service banner...\n")
	if resp, err := r.api.Get(ctx, "/"); err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		dump.Banner = resp.JSONData
	} else {
		dump.Errors = append(dump.Errors, map[string]string{"endpoint": "/", "error": dumpError(resp, err)})
		r.logger.Warn("failed to fetch banner", "error", err)
	}

	r.writePlain("Fetching health status...\n")
	if resp, err := r.api.Get(ctx, "/health"); err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		dump.Health = resp.JSONData
	} else {
		dump.Errors = append(dump.Errors, map[string]string{"endpoint": "/health", "error": dumpError(resp, err)})
		r.logger.Warn("failed to fetch health", "error", err)
	}

	r.writePlain("\n✓ Dump complete\n\n")

	if save {
		saveFile := "api_dump.json"
		data, err := json.MarshalIndent(dump, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := os.WriteFile(saveFile, data, 0644); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", saveFile)
			r.writePlain("✓ Dump saved to %s\n\n", saveFile)
		}
	}

	return r.writeJSON(dump, pretty)
}

func dumpError(resp *services.APIResponse, err error) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return "no response"
}
