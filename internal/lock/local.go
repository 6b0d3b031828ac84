package lock

import (
	"context"
	"fmt"
	"sync"
)

// Local is an in-process Locker. It is enough for a single server instance.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// slot is a one-token semaphore shared by waiters on the same key.
type slot struct {
	ch      chan struct{}
	waiters int
}

// NewLocal creates an in-process Locker.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// WithLock blocks until key is free or ctx is done.
func (l *Local) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := checkArgs(key, fn); err != nil {
		return err
	}

	s := l.join(key)
	defer l.leave(key, s)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
	}
	defer func() { <-s.ch }()

	return fn(ctx)
}

func (l *Local) join(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.waiters++
	return s
}

func (l *Local) leave(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, key)
	}
}
