/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migratekit

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"
)

// TxOption is a functional option for DoInTx.
type TxOption func(*txOptions)

type txOptions struct {
	retryPolicy *RetryPolicy
	sqlTxOpts   *sql.TxOptions
}

// WithRetryPolicy makes DoInTx repeat the whole transaction when it fails with an error
// that is considered retryable for the database driver (see RegisterIsRetryableFunc).
func WithRetryPolicy(policy RetryPolicy) TxOption {
	return func(o *txOptions) {
		o.retryPolicy = &policy
	}
}

// WithTxOptions sets options (isolation level, read-only mode) for the transaction.
func WithTxOptions(sqlTxOpts *sql.TxOptions) TxOption {
	return func(o *txOptions) {
		o.sqlTxOpts = sqlTxOpts
	}
}

// DoInTx begins a new transaction, calls passed function and do commit or rollback
// depending on whether the function returns an error or not.
// The transaction is rolled back if the function panics, the panic is propagated after that.
func DoInTx(ctx context.Context, dbConn *sql.DB, fn func(tx *sql.Tx) error, options ...TxOption) error {
	var opts txOptions
	for _, opt := range options {
		opt(&opts)
	}
	if opts.retryPolicy == nil {
		return doInTx(ctx, dbConn, opts.sqlTxOpts, fn)
	}
	return DoWithRetry(ctx, *opts.retryPolicy, GetIsRetryable(dbConn.Driver()), nil, func(ctx context.Context) error {
		return doInTx(ctx, dbConn, opts.sqlTxOpts, fn)
	})
}

func doInTx(ctx context.Context, dbConn *sql.DB, sqlTxOpts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	tx, err := dbConn.BeginTx(ctx, sqlTxOpts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("commit tx: %w", err)
		}
	}()

	return fn(tx)
}

var retryableFuncs = struct {
	sync.RWMutex
	byDriver map[reflect.Type][]IsRetryable
}{byDriver: make(map[reflect.Type][]IsRetryable)}

// RegisterIsRetryableFunc registers a function that classifies errors of the given driver.
// Several functions may be registered for one driver, an error is retryable if any of them says so.
func RegisterIsRetryableFunc(d driver.Driver, fn IsRetryable) {
	retryableFuncs.Lock()
	defer retryableFuncs.Unlock()
	t := reflect.TypeOf(d)
	retryableFuncs.byDriver[t] = append(retryableFuncs.byDriver[t], fn)
}

// UnregisterAllIsRetryableFuncs removes all functions registered for the given driver.
func UnregisterAllIsRetryableFuncs(d driver.Driver) {
	retryableFuncs.Lock()
	defer retryableFuncs.Unlock()
	delete(retryableFuncs.byDriver, reflect.TypeOf(d))
}

// GetIsRetryable returns a function that classifies errors of the given driver,
// or nil if nothing was registered for it.
func GetIsRetryable(d driver.Driver) IsRetryable {
	retryableFuncs.RLock()
	fns := retryableFuncs.byDriver[reflect.TypeOf(d)]
	retryableFuncs.RUnlock()
	if len(fns) == 0 {
		return nil
	}
	return func(err error) bool {
		for _, fn := range fns {
			if fn(err) {
				return true
			}
		}
		return false
	}
}
