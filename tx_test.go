/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migratekit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestDoInTx(t *testing.T) {
	tests := []struct {
		name         string
		initMock     func(m sqlmock.Sqlmock)
		fn           func(tx *sql.Tx) error
		wantErr      error
		wantPanicErr error
	}{
		{
			name: "success",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec("CREATE TABLE t").WillReturnResult(sqlmock.NewResult(0, 0))
				m.ExpectCommit()
			},
			fn: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE TABLE t (id INTEGER)")
				return err
			},
		},
		{
			name: "error on begin",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin().WillReturnError(fmt.Errorf("begin error"))
			},
			fn: func(tx *sql.Tx) error {
				return nil
			},
			wantErr: fmt.Errorf("begin tx: begin error"),
		},
		{
			name: "error on commit",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectCommit().WillReturnError(fmt.Errorf("commit error"))
			},
			fn: func(tx *sql.Tx) error {
				return nil
			},
			wantErr: fmt.Errorf("commit tx: commit error"),
		},
		{
			name: "error in func rolls back",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectRollback()
			},
			fn: func(tx *sql.Tx) error {
				return fmt.Errorf("fn error")
			},
			wantErr: fmt.Errorf("fn error"),
		},
		{
			name: "panic in func rolls back",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectRollback()
			},
			fn: func(tx *sql.Tx) error {
				panic(fmt.Errorf("panic"))
			},
			wantPanicErr: fmt.Errorf("panic"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() {
				require.NoError(t, mock.ExpectationsWereMet())
			}()

			tt.initMock(mock)

			if tt.wantPanicErr != nil {
				require.PanicsWithError(t, tt.wantPanicErr.Error(), func() {
					_ = DoInTx(context.Background(), db, tt.fn)
				})
				return
			}
			err = DoInTx(context.Background(), db, tt.fn)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr.Error())
		})
	}
}

func TestDoInTxWithRetryPolicy(t *testing.T) {
	retryableError := errors.New("retryable error")

	retryPolicy := NewConstantRetryPolicy(time.Millisecond*10, 3)

	tests := []struct {
		name       string
		initMock   func(m sqlmock.Sqlmock)
		fnProvider func() func(tx *sql.Tx) error
		wantErr    error
	}{
		{
			name: "success, no retry attempts",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectCommit()
			},
			fnProvider: func() func(tx *sql.Tx) error {
				return func(tx *sql.Tx) error { return nil }
			},
		},
		{
			name: "success after retry",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectRollback()
				m.ExpectBegin()
				m.ExpectCommit()
			},
			fnProvider: func() func(tx *sql.Tx) error {
				var attempts int
				return func(tx *sql.Tx) error {
					attempts++
					if attempts < 2 {
						return retryableError
					}
					return nil
				}
			},
		},
		{
			name: "fail, no retry on non-retryable error",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectRollback()
			},
			fnProvider: func() func(tx *sql.Tx) error {
				return func(tx *sql.Tx) error {
					return fmt.Errorf("non-retryable error")
				}
			},
			wantErr: fmt.Errorf("non-retryable error"),
		},
		{
			name: "fail, max retry attempts exceeded",
			initMock: func(m sqlmock.Sqlmock) {
				// 4 attempts: 1 initial + 3 retries
				for i := 0; i < 4; i++ {
					m.ExpectBegin()
					m.ExpectRollback()
				}
			},
			fnProvider: func() func(tx *sql.Tx) error {
				return func(tx *sql.Tx) error {
					return retryableError
				}
			},
			wantErr: retryableError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)

			UnregisterAllIsRetryableFuncs(db.Driver())
			RegisterIsRetryableFunc(db.Driver(), func(err error) bool {
				return errors.Is(err, retryableError)
			})
			defer UnregisterAllIsRetryableFuncs(db.Driver())

			tt.initMock(mock)

			err = DoInTx(context.Background(), db, tt.fnProvider(), WithRetryPolicy(retryPolicy))
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.EqualError(t, err, tt.wantErr.Error())
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetIsRetryable(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	UnregisterAllIsRetryableFuncs(db.Driver())
	require.Nil(t, GetIsRetryable(db.Driver()))

	errA, errB := errors.New("a"), errors.New("b")
	RegisterIsRetryableFunc(db.Driver(), func(err error) bool { return errors.Is(err, errA) })
	RegisterIsRetryableFunc(db.Driver(), func(err error) bool { return errors.Is(err, errB) })
	defer UnregisterAllIsRetryableFuncs(db.Driver())

	isRetryable := GetIsRetryable(db.Driver())
	require.NotNil(t, isRetryable)
	require.True(t, isRetryable(errA))
	require.True(t, isRetryable(fmt.Errorf("wrapped: %w", errB)))
	require.False(t, isRetryable(errors.New("c")))
}
