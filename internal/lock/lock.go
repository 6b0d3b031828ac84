// Package lock serializes settlement recording per club.
//
// Usage:
//
//	err := locker.WithLock(ctx, "club:"+clubID, func(ctx context.Context) error {
//	    // only one recorder per club runs here
//	    return record(ctx)
//	})
package lock

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotAcquired is returned when the lock is held elsewhere for longer
	// than the caller is willing to wait.
	ErrNotAcquired = errors.New("lock not acquired")

	// ErrEmptyKey is returned for an empty lock key.
	ErrEmptyKey = errors.New("lock key cannot be empty")
)

// Locker runs fn while holding the named lock.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

func checkArgs(key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return ErrEmptyKey
	}
	if fn == nil {
		return fmt.Errorf("lock %s: nil function", key)
	}
	return nil
}
