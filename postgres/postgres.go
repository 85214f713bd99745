/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package postgres registers the github.com/lib/pq driver ("postgres") and marks its deadlock and
// serialization failure errors as retryable.
package postgres

import (
	"errors"

	"github.com/lib/pq"

	"github.com/acronis/go-migratekit"
)

// ErrCode defines the type (code) of PostgreSQL errors.
type ErrCode string

// PostgreSQL error codes.
const (
	ErrCodeDeadlockDetected     ErrCode = "40P01"
	ErrCodeSerializationFailure ErrCode = "40001"
	ErrCodeUniqueViolation      ErrCode = "23505"
	ErrCodeUndefinedTable       ErrCode = "42P01"
)

func init() {
	migratekit.RegisterIsRetryableFunc(&pq.Driver{}, func(err error) bool {
		return CheckPostgresError(err, ErrCodeDeadlockDetected) || CheckPostgresError(err, ErrCodeSerializationFailure)
	})
}

// CheckPostgresError checks if the passed error relates to Postgres and it's internal code matches the one from the argument.
func CheckPostgresError(err error, errCode ErrCode) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == pq.ErrorCode(errCode)
	}
	return false
}
