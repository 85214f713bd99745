/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package sqlite registers the github.com/mattn/go-sqlite3 driver and marks "database is busy"
// and "database table is locked" errors as retryable.
package sqlite

import (
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/acronis/go-migratekit"
)

func init() {
	migratekit.RegisterIsRetryableFunc(&sqlite3.SQLiteDriver{}, func(err error) bool {
		return CheckSQLiteError(err, sqlite3.ErrBusy) || CheckSQLiteError(err, sqlite3.ErrLocked)
	})
}

// CheckSQLiteError checks if the passed error relates to SQLite and it's primary result code matches the one from the argument.
func CheckSQLiteError(err error, errCode sqlite3.ErrNo) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == errCode
	}
	return false
}
