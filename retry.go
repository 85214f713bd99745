/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migratekit

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryable tells whether an error is transient and the failed operation may be repeated.
type IsRetryable func(err error) bool

// RetryNotify is called before every retry with the error of the failed attempt,
// the number of this attempt (starting from 1) and the delay before the next one.
type RetryNotify func(err error, attempt int, delay time.Duration)

// RetryPolicy is a bounded, fixed-delay retry policy.
// An operation is executed once and then retried at most MaxRetries times.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// NewConstantRetryPolicy creates a new RetryPolicy with the fixed delay between attempts.
func NewConstantRetryPolicy(delay time.Duration, maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, Delay: delay}
}

// Attempts returns the total number of attempts allowed by the policy.
func (p RetryPolicy) Attempts() int {
	return p.maxRetries() + 1
}

func (p RetryPolicy) maxRetries() int {
	if p.MaxRetries < 0 {
		return 0
	}
	return p.MaxRetries
}

// DoWithRetry executes fn and repeats it while it fails with an error that isRetryable accepts
// and the policy still has attempts left. The error of the last attempt is returned as is.
// A nil isRetryable means that no error is retryable.
// Waiting between attempts is interrupted when ctx is done, ctx.Err() is returned in this case.
func DoWithRetry(
	ctx context.Context, policy RetryPolicy, isRetryable IsRetryable, notify RetryNotify, fn func(ctx context.Context) error,
) error {
	if isRetryable == nil || policy.maxRetries() == 0 {
		return fn(ctx)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.maxRetries())), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, delay time.Duration) {
		if notify != nil {
			notify(err, attempt, delay)
		}
	})
}
