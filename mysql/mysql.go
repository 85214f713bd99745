/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package mysql registers the github.com/go-sql-driver/mysql driver and marks deadlocks
// and lock wait timeouts as retryable errors.
package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/acronis/go-migratekit"
)

// ErrCode defines the type (code) of MySQL errors.
type ErrCode uint16

// MySQL error codes.
const (
	ErrCodeDeadlock        ErrCode = 1213 // ER_LOCK_DEADLOCK
	ErrCodeLockWaitTimeout ErrCode = 1205 // ER_LOCK_WAIT_TIMEOUT
	ErrCodeDupEntry        ErrCode = 1062 // ER_DUP_ENTRY
)

func init() {
	migratekit.RegisterIsRetryableFunc(&mysql.MySQLDriver{}, func(err error) bool {
		return CheckMySQLError(err, ErrCodeDeadlock) || CheckMySQLError(err, ErrCodeLockWaitTimeout)
	})
}

// CheckMySQLError checks if the passed error relates to MySQL and it's internal code matches the one from the argument.
func CheckMySQLError(err error, errCode ErrCode) bool {
	var mySQLErr *mysql.MySQLError
	if errors.As(err, &mySQLErr) {
		return mySQLErr.Number == uint16(errCode)
	}
	return false
}
