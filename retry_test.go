/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migratekit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoWithRetry(t *testing.T) {
	transientErr := errors.New("transient")
	fatalErr := errors.New("fatal")
	isTransient := func(err error) bool { return errors.Is(err, transientErr) }

	tests := []struct {
		name         string
		policy       RetryPolicy
		isRetryable  IsRetryable
		failures     []error
		wantErr      error
		wantAttempts int
	}{
		{
			name:         "success on first attempt",
			policy:       NewConstantRetryPolicy(time.Millisecond, 3),
			isRetryable:  isTransient,
			wantAttempts: 1,
		},
		{
			name:         "success after transient failures",
			policy:       NewConstantRetryPolicy(time.Millisecond, 3),
			isRetryable:  isTransient,
			failures:     []error{transientErr, transientErr},
			wantAttempts: 3,
		},
		{
			name:         "attempts exhausted, last error is returned",
			policy:       NewConstantRetryPolicy(time.Millisecond, 2),
			isRetryable:  isTransient,
			failures:     []error{transientErr, transientErr, transientErr, transientErr},
			wantErr:      transientErr,
			wantAttempts: 3,
		},
		{
			name:         "non-retryable error is propagated immediately",
			policy:       NewConstantRetryPolicy(time.Millisecond, 5),
			isRetryable:  isTransient,
			failures:     []error{transientErr, fatalErr, transientErr},
			wantErr:      fatalErr,
			wantAttempts: 2,
		},
		{
			name:         "nil classifier never retries",
			policy:       NewConstantRetryPolicy(time.Millisecond, 5),
			failures:     []error{transientErr},
			wantErr:      transientErr,
			wantAttempts: 1,
		},
		{
			name:         "zero retries",
			policy:       NewConstantRetryPolicy(time.Millisecond, 0),
			isRetryable:  isTransient,
			failures:     []error{transientErr},
			wantErr:      transientErr,
			wantAttempts: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			var notified []int
			err := DoWithRetry(context.Background(), tt.policy, tt.isRetryable,
				func(err error, attempt int, delay time.Duration) {
					require.Equal(t, tt.policy.Delay, delay)
					notified = append(notified, attempt)
				},
				func(ctx context.Context) error {
					attempts++
					if attempts <= len(tt.failures) {
						return tt.failures[attempts-1]
					}
					return nil
				})
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
			require.Equal(t, tt.wantAttempts, attempts)
			if tt.wantAttempts > 1 {
				require.Len(t, notified, tt.wantAttempts-1)
			}
		})
	}
}

func TestDoWithRetry_ContextCanceled(t *testing.T) {
	transientErr := errors.New("transient")
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := DoWithRetry(ctx, NewConstantRetryPolicy(time.Hour, 3), func(error) bool { return true }, nil,
		func(ctx context.Context) error {
			attempts++
			cancel()
			return transientErr
		})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}

func TestRetryPolicy_Attempts(t *testing.T) {
	require.Equal(t, 4, NewConstantRetryPolicy(time.Second, 3).Attempts())
	require.Equal(t, 1, NewConstantRetryPolicy(time.Second, -1).Attempts())
}
