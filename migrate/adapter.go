/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import "context"

// StoredVersion is the version state persisted by an adapter.
type StoredVersion struct {
	Version  string `json:"version"`
	Checksum string `json:"checksum"`
}

// Adapter provides store-specific primitives for Migrator.
// Tx is an opaque transaction handle: the Migrator never inspects it and only passes it
// from Transaction to Execute and SaveVersion.
type Adapter[Tx any] interface {
	// QueryVersion returns the persisted version state or nil if no version was saved yet.
	QueryVersion(ctx context.Context) (*StoredVersion, error)
	// SaveVersion persists the version and the checksum of a successful run inside the transaction.
	SaveVersion(ctx context.Context, tx Tx, result *Result) error
	// Execute runs the content of one migration file inside the transaction.
	Execute(ctx context.Context, tx Tx, entry Entry, content []byte) error
	// Transaction calls fn inside a transaction. The transaction must be rolled back if fn returns an error.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Locker may be implemented by an Adapter that needs mutual exclusion between
// several processes migrating the same store.
// Without it, lock acquisition and release are no-ops.
type Locker interface {
	AcquireLock(ctx context.Context) error
	ReleaseLock(ctx context.Context) error
}

// RetryClassifier may be implemented by an Adapter to mark errors that are worth retrying
// (deadlocks, serialization failures, busy database and so on).
// Without it, no error is retried.
type RetryClassifier interface {
	IsRetryable(err error) bool
}
