/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-migratekit"
)

func TestSQLiteIsRetryable(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	isRetryable := migratekit.GetIsRetryable(db.Driver())
	require.NotNil(t, isRetryable)
	for _, code := range []sqlite3.ErrNo{sqlite3.ErrBusy, sqlite3.ErrLocked} {
		var err error = sqlite3.Error{Code: code}
		require.True(t, isRetryable(err))
		require.True(t, isRetryable(fmt.Errorf("wrapped: %w", err)))
	}
	require.False(t, isRetryable(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	require.False(t, isRetryable(driver.ErrBadConn))
}

func TestSQLiteErrorFromDriver(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("SELECT * FROM missing_table")
	require.Error(t, err)
	require.True(t, CheckSQLiteError(err, sqlite3.ErrError))
	require.False(t, CheckSQLiteError(err, sqlite3.ErrBusy))
}
