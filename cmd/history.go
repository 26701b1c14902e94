package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/convx/internal/formatter"
	"github.com/desertthunder/convx/internal/repositories"
	"github.com/desertthunder/convx/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints past conversion attempts, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	if outcome := cmd.String("outcome"); outcome != "" {
		criteria["outcome"] = outcome
	}
	if limit := cmd.Int("limit"); limit > 0 {
		criteria["limit"] = int(limit)
	}

	records, err := repositories.NewConversionRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if savePath := cmd.String("save"); savePath != "" {
		written, err := formatter.WriteHistoryCSV(records, savePath)
		if err != nil {
			return err
		}
		r.writePlain("✓ History saved to %s\n", written)
		return nil
	}

	var data []byte
	switch cmd.String("format") {
	case "csv":
		data, err = formatter.HistoryToCSV(records)
	case "markdown", "md":
		data, err = formatter.HistoryToMarkdown(records)
	default:
		data, err = formatter.HistoryToText(records)
	}
	if err != nil {
		return err
	}

	return r.writePlain("%s", string(data))
}

// HistoryShow prints one conversion attempt by record id or backend conversion id.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: record id is required", shared.ErrMissingArgument)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	repo := repositories.NewConversionRepository(db)
	record, err := repo.Get(id)
	if err != nil {
		if record, err = repo.GetByConversionID(id); err != nil {
			return fmt.Errorf("%w: no history record for %q", shared.ErrConversionNotFound, id)
		}
	}

	r.writePlainHeader(fmt.Sprintf("Conversion #%d", record.Sequence()))
	r.writePlain("Record ID: %s\n", record.ID())
	r.writePlain("Input: [%s] %s\n", record.InputKind(), record.InputRef())
	r.writePlain("Outcome: %s (%d%%)\n", record.Outcome(), record.Progress())
	if record.ConversionID() != "" {
		r.writePlain("Conversion ID: %s\n", record.ConversionID())
	}
	if record.DurationSecs() > 0 {
		r.writePlain("Duration: %s\n", formatter.FormatDuration(record.DurationSecs()))
	}
	if record.DownloadPath() != "" {
		r.writePlain("Downloaded to: %s\n", record.DownloadPath())
	}
	if record.ErrorMsg() != "" {
		r.writePlain("Error: %s\n", record.ErrorMsg())
	}
	r.writePlain("Submitted: %s\n", record.CreatedAt().Format("2006-01-02 15:04:05"))

	return nil
}

// HistoryClear soft-deletes all conversion history.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	cleared, err := repositories.NewConversionRepository(db).Clear()
	if err != nil {
		return err
	}

	r.writePlain("✓ Cleared %d conversion records\n", cleared)
	return nil
}
