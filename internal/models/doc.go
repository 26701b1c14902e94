// Package models defines domain entities and persistence interfaces for the convx conversion client.
//
// The package currently holds a single persistent entity:
//   - [ConversionRecord] : One conversion attempt (input, backend conversion id, outcome, duration)
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps, validation, and soft delete support.
// The [Repository] interface defines standard CRUD operations for database access.
//
// Wire DTOs for the converter backend (submissions, status snapshots, stream events) live in internal/services;
// the in-memory session state lives in internal/session.
package models
