package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/desertthunder/convx/internal/repositories"
	"github.com/desertthunder/convx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Status fetches the current state of a conversion from the backend.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	conversionID, err := r.resolveConversionID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	r.logger.Info("fetching conversion status", "conversion_id", conversionID)

	snap, err := r.converter.PollStatus(ctx, conversionID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(snap, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Conversion %s", conversionID))
	r.writePlain("Overall progress: %d%%\n\n", snap.OverallProgress)

	// stable stage order regardless of map iteration
	ids := make([]string, 0, len(snap.Steps))
	for id := range snap.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		step := snap.Steps[id]
		r.writePlain("  %-18s %-10s %3d%%\n", id, step.Status, step.Progress)
	}

	return nil
}

// Download fetches the converted archive for a conversion.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	conversionID, err := r.resolveConversionID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	path, err := r.downloadArchive(ctx, conversionID, cmd.String("output"))
	if err != nil {
		if errors.Is(err, shared.ErrConversionNotFound) {
			return fmt.Errorf("%w: the result may have expired, rerun the conversion", err)
		}
		return err
	}

	r.writePlain("✓ Saved to %s\n", path)
	return nil
}

// Health checks the backend's health endpoint.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	health, err := r.converter.CheckHealth(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(health, cmd.Bool("pretty"))
	}

	r.writePlain("Backend: %s\n", r.converter.Name())
	r.writePlain("Status: %s\n", health.Status)
	if health.AzureOpenAI != "" {
		r.writePlain("Azure OpenAI: %s\n", health.AzureOpenAI)
	}
	if health.Timestamp > 0 {
		r.writePlain("Checked: %s\n", time.Unix(int64(health.Timestamp), 0).Format(time.RFC3339))
	}
	if health.Error != "" {
		r.writePlain("Error: %s\n", health.Error)
	}

	if cmd.Bool("verbose") && r.api != nil {
		if resp, err := r.api.Get(ctx, "/"); err == nil && resp.IsJSON {
			r.writePlain("\nService banner:\n")
			return r.writeJSON(resp.JSONData, true)
		} else if err != nil {
			r.logger.Warn("failed to fetch service banner", "error", err)
		}
	}

	return nil
}

// resolveConversionID falls back to the most recent history record when no
// conversion id argument is given.
func (r *Runner) resolveConversionID(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}

	db, err := r.database()
	if err != nil {
		return "", fmt.Errorf("%w: no conversion id given and history is unavailable", shared.ErrMissingArgument)
	}

	record, err := repositories.NewConversionRepository(db).Latest()
	if err != nil || record.ConversionID() == "" {
		return "", fmt.Errorf("%w: no conversion id given and none recorded in history", shared.ErrMissingArgument)
	}

	r.logger.Info("using most recent conversion from history", "conversion_id", record.ConversionID())
	return record.ConversionID(), nil
}
