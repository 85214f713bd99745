/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package pgx registers the github.com/jackc/pgx/v5 driver ("pgx") and marks its deadlock and
// serialization failure errors as retryable, so DoInTx and the migration engine may repeat the failed operation.
package pgx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	pg "github.com/jackc/pgx/v5/stdlib"

	"github.com/acronis/go-migratekit"
)

// ErrCode defines the type (code) of PostgreSQL errors.
type ErrCode string

// PostgreSQL error codes (will be filled gradually).
const (
	ErrCodeDeadlockDetected     ErrCode = "40P01"
	ErrCodeSerializationFailure ErrCode = "40001"
	ErrFeatureNotSupported      ErrCode = "0A000"
)

func init() {
	migratekit.RegisterIsRetryableFunc(&pg.Driver{}, func(err error) bool {
		return CheckPostgresError(err, ErrCodeDeadlockDetected) || CheckPostgresError(err, ErrCodeSerializationFailure)
	})
}

// CheckPostgresError checks if the passed error relates to Postgres and it's internal code matches the one from the argument.
func CheckPostgresError(err error, errCode ErrCode) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == string(errCode)
	}
	return false
}

// CheckInvalidCachedPlanError checks if the error is "cached plan must not change result type".
// It happens when a prepared statement is executed after a migration altered the tables it uses.
func CheckInvalidCachedPlanError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Severity == "ERROR" &&
			pgErr.Code == string(ErrFeatureNotSupported) &&
			pgErr.Message == "cached plan must not change result type"
	}
	return false
}
