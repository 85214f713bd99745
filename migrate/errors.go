/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"errors"
	"fmt"

	"github.com/acronis/go-migratekit/version"
)

// ErrInvalidVersion is returned (wrapped) when the current or the target version is not a valid semantic version.
var ErrInvalidVersion = version.ErrInvalid

// ErrChecksumMismatch is returned (wrapped) when the stored checksum of the current version
// differs from the checksum recomputed from migration files.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ErrExecution is returned (wrapped) when a migration file cannot be executed.
var ErrExecution = errors.New("migration execution failed")

// ErrLockNotAcquired is returned (wrapped) when the migration lock cannot be acquired.
var ErrLockNotAcquired = errors.New("migration lock not acquired")

// ErrInvalidPattern is returned (wrapped) when a migration file pattern cannot be used.
var ErrInvalidPattern = errors.New("invalid migration file pattern")

// ErrInvalidEncoding is returned (wrapped) when the encoding of migration files is unknown.
var ErrInvalidEncoding = errors.New("invalid migration file encoding")

// InvalidVersionError describes a version string that cannot be parsed.
type InvalidVersionError struct {
	Role  string // "current" or "target"
	Value string
	Err   error
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid %s version %q: %v", e.Role, e.Value, e.Err)
}

func (e *InvalidVersionError) Unwrap() error {
	return e.Err
}

// ChecksumMismatchError is returned when migrate is called for the version that is already applied,
// but the files of this version were renamed, added or removed since then.
type ChecksumMismatchError struct {
	Version  string
	Stored   string
	Computed string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s for version %s: stored %q, computed %q", ErrChecksumMismatch, e.Version, e.Stored, e.Computed)
}

func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// ExecutionError is returned when a migration file fails to execute after all retry attempts.
// The transaction of the run is rolled back by the adapter.
type ExecutionError struct {
	Entry   string
	Version string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute migration %s (version %s): %v", e.Entry, e.Version, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}
