// package formatter provides functions to export conversion history and session logs to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/convx/internal/models"
	"github.com/desertthunder/convx/internal/session"
)

// FormatDuration renders a duration in seconds as a short human-readable string
func FormatDuration(secs float64) string {
	if secs <= 0 {
		return "-"
	}
	d := time.Duration(secs * float64(time.Second)).Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// HistoryToCSV converts conversion records to CSV format with columns: Sequence, Kind, Input, ConversionID, Outcome, Progress, Duration, Error, CreatedAt
func HistoryToCSV(records []*models.ConversionRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Kind", "Input", "ConversionID", "Outcome", "Progress", "Duration", "Error", "CreatedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range records {
		row := []string{
			strconv.Itoa(record.Sequence()),
			record.InputKind(),
			record.InputRef(),
			record.ConversionID(),
			record.Outcome(),
			strconv.Itoa(record.Progress()),
			strconv.FormatFloat(record.DurationSecs(), 'f', -1, 64),
			record.ErrorMsg(),
			record.CreatedAt().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown converts conversion records to a Markdown table
func HistoryToMarkdown(records []*models.ConversionRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Conversion History\n\n")
	buf.WriteString(fmt.Sprintf("**Conversions**: %d\n\n", len(records)))

	buf.WriteString("| # | Kind | Input | Outcome | Progress | Duration | Submitted |\n")
	buf.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	for _, record := range records {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %d%% | %s | %s |\n",
			record.Sequence(),
			record.InputKind(),
			record.InputRef(),
			record.Outcome(),
			record.Progress(),
			FormatDuration(record.DurationSecs()),
			record.CreatedAt().Format("2006-01-02 15:04"),
		))
	}

	return buf.Bytes(), nil
}

// HistoryToText converts conversion records to plain text format
func HistoryToText(records []*models.ConversionRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Conversions: %d\n\n", len(records)))

	for _, record := range records {
		buf.WriteString(fmt.Sprintf("#%d [%s] %s - %s (%d%%)",
			record.Sequence(),
			record.InputKind(),
			record.InputRef(),
			record.Outcome(),
			record.Progress(),
		))
		if record.ErrorMsg() != "" {
			buf.WriteString(fmt.Sprintf(" error: %s", record.ErrorMsg()))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// SessionToMarkdown renders a finished session as a Markdown report with a
// stage table and the full event log
func SessionToMarkdown(s session.Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Conversion Report\n\n")
	buf.WriteString(fmt.Sprintf("**Input**: %s\n", s.Input.Ref()))
	buf.WriteString(fmt.Sprintf("**Phase**: %s\n", s.Phase))
	buf.WriteString(fmt.Sprintf("**Progress**: %d%%\n", s.OverallProgress))
	if s.Result != nil {
		buf.WriteString(fmt.Sprintf("**Conversion ID**: %s\n", s.Result.ConversionID))
		buf.WriteString(fmt.Sprintf("**Duration**: %s\n", FormatDuration(s.Result.Duration)))
	}
	if s.Err != "" {
		buf.WriteString(fmt.Sprintf("**Error**: %s\n", s.Err))
	}
	buf.WriteString("\n## Stages\n\n")

	buf.WriteString("| Stage | Status | Progress |\n")
	buf.WriteString("| --- | --- | --- |\n")
	for _, stage := range s.Stages {
		buf.WriteString(fmt.Sprintf("| %s | %s | %d%% |\n", stage.ID, stage.Status, stage.Progress))
	}

	buf.WriteString("\n## Log\n\n")
	for _, entry := range s.Log {
		buf.WriteString(fmt.Sprintf("- `%s` %s\n", entry.Timestamp.Format("15:04:05"), entry.Message))
	}

	return buf.Bytes(), nil
}

// SessionLogToText converts a session's event log to plain text, one line per entry
func SessionLogToText(s session.Session) ([]byte, error) {
	var buf bytes.Buffer

	for _, entry := range s.Log {
		level := entry.Level
		if level == "" {
			level = "INFO"
		}
		buf.WriteString(fmt.Sprintf("%s [%s]", entry.Timestamp.Format(time.RFC3339), level))
		if entry.Stage != "" {
			buf.WriteString(fmt.Sprintf(" (%s)", entry.Stage))
		}
		buf.WriteString(fmt.Sprintf(" %s\n", entry.Message))
	}

	return buf.Bytes(), nil
}

// WriteHistoryCSV exports conversion history to a CSV file.
//
// Defaults to conversions.csv as the filename.
func WriteHistoryCSV(records []*models.ConversionRecord, filepath string) (string, error) {
	if filepath == "" {
		filepath = "conversions.csv"
	}

	csvData, err := HistoryToCSV(records)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}

// WriteSessionReport exports a session report to a Markdown file.
//
// Defaults to conversion_report.md as the filename.
func WriteSessionReport(s session.Session, filepath string) (string, error) {
	if filepath == "" {
		filepath = "conversion_report.md"
	}

	mdData, err := SessionToMarkdown(s)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}
