// package models defines the data model for the conversion client
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models in the conversion client.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// ConversionRecord is one conversion attempt persisted to history.
//
// InputKind is "file" or "repo"; InputRef is the ZIP path or repository URL.
// Outcome holds the terminal phase ("completed", "failed") or "submitted" for
// attempts that never reached a terminal state.
type ConversionRecord struct {
	id           string
	sequence     int
	inputKind    string
	inputRef     string
	conversionID string
	outcome      string
	progress     int
	durationSecs float64
	downloadPath string
	errorMsg     string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewConversionRecord creates a ConversionRecord for the given input.
func NewConversionRecord(sequence int, inputKind, inputRef string) *ConversionRecord {
	now := time.Now()
	return &ConversionRecord{
		sequence:  sequence,
		inputKind: inputKind,
		inputRef:  inputRef,
		outcome:   "submitted",
		createdAt: now,
		updatedAt: now,
	}
}

func (c *ConversionRecord) ID() string            { return c.id }
func (c *ConversionRecord) Sequence() int         { return c.sequence }
func (c *ConversionRecord) InputKind() string     { return c.inputKind }
func (c *ConversionRecord) InputRef() string      { return c.inputRef }
func (c *ConversionRecord) ConversionID() string  { return c.conversionID }
func (c *ConversionRecord) Outcome() string       { return c.outcome }
func (c *ConversionRecord) Progress() int         { return c.progress }
func (c *ConversionRecord) DurationSecs() float64 { return c.durationSecs }
func (c *ConversionRecord) DownloadPath() string  { return c.downloadPath }
func (c *ConversionRecord) ErrorMsg() string      { return c.errorMsg }
func (c *ConversionRecord) CreatedAt() time.Time  { return c.createdAt }
func (c *ConversionRecord) UpdatedAt() time.Time  { return c.updatedAt }
func (c *ConversionRecord) DeletedAt() *time.Time { return c.deletedAt }

func (c *ConversionRecord) SetID(id string)             { c.id = id }
func (c *ConversionRecord) SetSequence(n int)           { c.sequence = n }
func (c *ConversionRecord) SetConversionID(id string)   { c.conversionID = id }
func (c *ConversionRecord) SetOutcome(outcome string)   { c.outcome = outcome }
func (c *ConversionRecord) SetProgress(p int)           { c.progress = p }
func (c *ConversionRecord) SetDurationSecs(d float64)   { c.durationSecs = d }
func (c *ConversionRecord) SetDownloadPath(p string)    { c.downloadPath = p }
func (c *ConversionRecord) SetErrorMsg(msg string)      { c.errorMsg = msg }
func (c *ConversionRecord) SetUpdatedAt(t time.Time)    { c.updatedAt = t }
func (c *ConversionRecord) SetDeletedAt(t *time.Time)   { c.deletedAt = t }
func (c *ConversionRecord) SetCreatedAt(t time.Time)    { c.createdAt = t }

// Validate checks required fields and outcome values.
func (c *ConversionRecord) Validate() error {
	if c.inputKind != "file" && c.inputKind != "repo" {
		return fmt.Errorf("input kind must be file or repo, got %q", c.inputKind)
	}
	if c.inputRef == "" {
		return fmt.Errorf("input ref is required")
	}
	switch c.outcome {
	case "submitted", "completed", "failed":
	default:
		return fmt.Errorf("invalid outcome %q", c.outcome)
	}
	if c.progress < 0 || c.progress > 100 {
		return fmt.Errorf("progress must be within [0, 100], got %d", c.progress)
	}
	return nil
}
