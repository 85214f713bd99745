/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package mssql registers the github.com/microsoft/go-mssqldb driver and marks deadlock victims as retryable errors.
package mssql

import (
	"errors"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/acronis/go-migratekit"
)

// ErrCode defines the type (number) of MSSQL errors.
type ErrCode int32

// MSSQL error numbers.
const (
	ErrCodeDeadlock     ErrCode = 1205
	ErrCodeLockTimeout  ErrCode = 1222
	ErrCodeDuplicateKey ErrCode = 2627
)

func init() {
	migratekit.RegisterIsRetryableFunc(&mssql.Driver{}, func(err error) bool {
		return CheckMSSQLError(err, ErrCodeDeadlock)
	})
}

// CheckMSSQLError checks if the passed error relates to MSSQL and it's number matches the one from the argument.
func CheckMSSQLError(err error, errCode ErrCode) bool {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == int32(errCode)
	}
	return false
}
