package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/convx/internal/models"
	"github.com/desertthunder/convx/internal/shared"
)

// ConversionRepository implements models.Repository[*models.ConversionRecord]
// for conversion history.
//
// Handles record CRUD with soft delete support and backend conversion id
// lookups for the download command.
type ConversionRepository struct {
	db *sql.DB
}

// NewConversionRepository creates a new ConversionRepository with the given database connection
func NewConversionRepository(db *sql.DB) *ConversionRepository {
	return &ConversionRepository{db: db}
}

// Create inserts a new conversion record with generated ID and sequence
func (r *ConversionRepository) Create(record *models.ConversionRecord) error {
	sequence, err := NextSequence(r.db, "conversions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	record.SetID(id)
	record.SetSequence(sequence)

	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO conversions (id, sequence, input_kind, input_ref, conversion_id, outcome, progress, duration_secs, download_path, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		record.InputKind(),
		record.InputRef(),
		record.ConversionID(),
		record.Outcome(),
		record.Progress(),
		record.DurationSecs(),
		record.DownloadPath(),
		record.ErrorMsg(),
		record.CreatedAt(),
		record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversion record: %w", err)
	}

	return nil
}

// Get retrieves a conversion record by ID, excluding soft-deleted records
func (r *ConversionRepository) Get(id string) (*models.ConversionRecord, error) {
	query := `
		SELECT id, sequence, input_kind, input_ref, conversion_id, outcome, progress, duration_secs, download_path, error, created_at, updated_at, deleted_at
		FROM conversions
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByConversionID retrieves a record by the backend conversion identifier
func (r *ConversionRepository) GetByConversionID(conversionID string) (*models.ConversionRecord, error) {
	query := `
		SELECT id, sequence, input_kind, input_ref, conversion_id, outcome, progress, duration_secs, download_path, error, created_at, updated_at, deleted_at
		FROM conversions
		WHERE conversion_id = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRow(query, conversionID))
}

// Latest retrieves the most recent conversion record, excluding soft-deleted records
func (r *ConversionRepository) Latest() (*models.ConversionRecord, error) {
	query := `
		SELECT id, sequence, input_kind, input_ref, conversion_id, outcome, progress, duration_secs, download_path, error, created_at, updated_at, deleted_at
		FROM conversions
		WHERE deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRow(query))
}

// Update modifies an existing conversion record
func (r *ConversionRepository) Update(record *models.ConversionRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE conversions
		SET conversion_id = ?, outcome = ?, progress = ?, duration_secs = ?, download_path = ?, error = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		record.ConversionID(),
		record.Outcome(),
		record.Progress(),
		record.DurationSecs(),
		record.DownloadPath(),
		record.ErrorMsg(),
		now,
		record.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update conversion record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("conversion record not found or already deleted: %s", record.ID())
	}

	return nil
}

// Delete soft-deletes a conversion record by ID
func (r *ConversionRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE conversions
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversion record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("conversion record not found or already deleted: %s", id)
	}

	return nil
}

// Clear soft-deletes every remaining conversion record and returns the count
func (r *ConversionRepository) Clear() (int, error) {
	now := time.Now()

	result, err := r.db.Exec("UPDATE conversions SET deleted_at = ? WHERE deleted_at IS NULL", now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear conversion history: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return int(rows), nil
}

// List retrieves conversion records matching the given criteria, excluding soft-deleted records
func (r *ConversionRepository) List(criteria map[string]any) ([]*models.ConversionRecord, error) {
	query := `
		SELECT id, sequence, input_kind, input_ref, conversion_id, outcome, progress, duration_secs, download_path, error, created_at, updated_at, deleted_at
		FROM conversions
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if outcome, ok := criteria["outcome"].(string); ok && outcome != "" {
		query += " AND outcome = ?"
		args = append(args, outcome)
	}

	if kind, ok := criteria["input_kind"].(string); ok && kind != "" {
		query += " AND input_kind = ?"
		args = append(args, kind)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversion records: %w", err)
	}
	defer rows.Close()

	var records []*models.ConversionRecord
	for rows.Next() {
		record, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// scanOne scans a single row into a [models.ConversionRecord]
func (r *ConversionRepository) scanOne(row *sql.Row) (*models.ConversionRecord, error) {
	var (
		id           string
		sequence     int
		inputKind    string
		inputRef     string
		conversionID sql.NullString
		outcome      string
		progress     int
		durationSecs float64
		downloadPath sql.NullString
		errorMsg     sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &inputKind, &inputRef, &conversionID, &outcome, &progress, &durationSecs, &downloadPath, &errorMsg, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversion record not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversion record: %w", err)
	}

	return buildRecord(id, sequence, inputKind, inputRef, conversionID, outcome, progress, durationSecs, downloadPath, errorMsg, createdAt, updatedAt, deletedAt), nil
}

// scanRow scans a row from [sql.Rows] into a [models.ConversionRecord]
func (r *ConversionRepository) scanRow(rows *sql.Rows) (*models.ConversionRecord, error) {
	var (
		id           string
		sequence     int
		inputKind    string
		inputRef     string
		conversionID sql.NullString
		outcome      string
		progress     int
		durationSecs float64
		downloadPath sql.NullString
		errorMsg     sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &inputKind, &inputRef, &conversionID, &outcome, &progress, &durationSecs, &downloadPath, &errorMsg, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversion record: %w", err)
	}

	return buildRecord(id, sequence, inputKind, inputRef, conversionID, outcome, progress, durationSecs, downloadPath, errorMsg, createdAt, updatedAt, deletedAt), nil
}

func buildRecord(id string, sequence int, inputKind, inputRef string, conversionID sql.NullString, outcome string, progress int, durationSecs float64, downloadPath, errorMsg sql.NullString, createdAt, updatedAt time.Time, deletedAt sql.NullTime) *models.ConversionRecord {
	record := models.NewConversionRecord(sequence, inputKind, inputRef)
	record.SetID(id)
	record.SetConversionID(conversionID.String)
	record.SetOutcome(outcome)
	record.SetProgress(progress)
	record.SetDurationSecs(durationSecs)
	record.SetDownloadPath(downloadPath.String)
	record.SetErrorMsg(errorMsg.String)
	record.SetCreatedAt(createdAt)
	record.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		record.SetDeletedAt(&deletedAt.Time)
	}
	return record
}
