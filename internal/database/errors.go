package database

import (
	"errors"
	"fmt"
)

// InvalidID is returned in place of an identifier when a create operation fails.
const InvalidID int64 = -1

var (
	// ErrOpenFailed wraps failures to create, open or read the database file.
	ErrOpenFailed = errors.New("database open failed")
	// ErrMigrationFailed is matched by every error returned from a failed migration batch.
	ErrMigrationFailed = errors.New("schema migration failed")
	// ErrSchemaTooNew is returned when the store was written by a newer release.
	ErrSchemaTooNew = errors.New("database schema is newer than this release supports")
	// ErrNotFound is returned by single-entity lookups that match no row.
	ErrNotFound = errors.New("not found")
	// ErrDefaultPlaylist is returned when the reserved playlist would be removed or renamed.
	ErrDefaultPlaylist = errors.New("the To Watch playlist cannot be removed or renamed")
	// ErrClosed is returned when an operation runs after Close.
	ErrClosed = errors.New("database is closed")
)

// StepError reports the migration step that aborted a batch.
type StepError struct {
	Version int
	Step    string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("migration to v%d failed at step %q: %v", e.Version, e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{ErrMigrationFailed, e.Err}
}
