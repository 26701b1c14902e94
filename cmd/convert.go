package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/convx/internal/formatter"
	"github.com/desertthunder/convx/internal/session"
	"github.com/desertthunder/convx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Convert runs a headless conversion: submit, stream progress to the
// terminal, download the result, and record the attempt in history.
func (r *Runner) Convert(ctx context.Context, cmd *cli.Command) error {
	filePath := cmd.String("file")
	repoURL := cmd.String("repo")
	outputPath := cmd.String("output")
	reportPath := cmd.String("report")
	skipDownload := cmd.Bool("no-download")

	var input session.Input
	switch {
	case filePath != "" && repoURL != "":
		return fmt.Errorf("%w: --file and --repo are mutually exclusive", shared.ErrInvalidArgument)
	case filePath != "":
		input = session.FileInput(filePath)
	case repoURL != "":
		input = session.RepoInput(repoURL)
	default:
		return fmt.Errorf("%w: provide --file or --repo", shared.ErrMissingArgument)
	}

	opts := r.controllerOpts()
	if cmd.Bool("poll") {
		opts.ForcePoll = true
	}
	if secs := cmd.Int("timeout"); secs > 0 {
		opts.SubmitTimeout = time.Duration(secs) * time.Second
	}

	ctrl := session.NewController(r.converter, r.logger, opts)
	defer ctrl.Close()

	if err := ctrl.Start(ctx, input); err != nil {
		return err
	}

	r.writePlainHeader("VB6 to .NET Conversion")
	r.writePlain("Source: %s\n\n", input.Ref())

	// the session log is append-only within a run, so the printed index is
	// always valid even when intermediate snapshots are dropped
	printedLog := 0
	lastProgress := -1
	for snap := range ctrl.Updates() {
		for _, entry := range snap.Log[printedLog:] {
			r.writePlain("  %s\n", entry.Message)
		}
		printedLog = len(snap.Log)

		if snap.OverallProgress != lastProgress {
			lastProgress = snap.OverallProgress
			r.logger.Info("conversion progress", "percent", snap.OverallProgress, "agent", snap.CurrentAgent)
		}
	}

	final := ctrl.Session()

	if final.Phase == session.PhaseFailed {
		r.recordConversion(final, "")
		if err := ctrl.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, final.Err)
	}

	r.writePlainln("✓ Conversion complete")
	if final.Result != nil {
		r.writePlain("Conversion ID: %s\n", final.Result.ConversionID)
		r.writePlain("Duration: %s\n", formatter.FormatDuration(final.Result.Duration))
	}

	downloadPath := ""
	if !skipDownload && final.Result != nil && final.Result.ConversionID != "" {
		path, err := r.downloadArchive(ctx, final.Result.ConversionID, outputPath)
		if err != nil {
			r.recordConversion(final, "")
			return err
		}
		downloadPath = path
		r.writePlain("Saved to: %s\n", downloadPath)
	}

	r.recordConversion(final, downloadPath)

	if reportPath != "" {
		written, err := formatter.WriteSessionReport(final, reportPath)
		if err != nil {
			return err
		}
		r.writePlain("Report written to: %s\n", written)
	}

	return nil
}

// downloadArchive streams the converted archive to disk. Defaults to the
// backend's archive name in the working directory.
func (r *Runner) downloadArchive(ctx context.Context, conversionID, outputPath string) (string, error) {
	if outputPath == "" {
		outputPath = "MyWindowsService.zip"
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	n, err := r.converter.DownloadResult(ctx, conversionID, f)
	if err != nil {
		os.Remove(outputPath)
		return "", err
	}

	r.logger.Info("archive downloaded", "path", outputPath, "bytes", n)
	return outputPath, nil
}
