/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package distrlock

import "errors"

// ErrLockAlreadyAcquired is returned when the lock is held by another owner and has not expired yet.
var ErrLockAlreadyAcquired = errors.New("distributed lock already acquired")

// ErrLockAlreadyReleased is returned when the lock is released or expired and cannot be released or extended by its former owner.
var ErrLockAlreadyReleased = errors.New("distributed lock already released")
