package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how long a crashed holder can block a club.
	DefaultTTL = 10 * time.Second

	defaultRetryDelay = 50 * time.Millisecond
	keyPrefix         = "clubsplit:lock:"
)

// Redis is a Locker shared by every server instance pointing at the same
// Redis. It uses redsync mutexes; keys expire after TTL so a crashed holder
// cannot block forever.
type Redis struct {
	rs         *redsync.Redsync
	ttl        time.Duration
	retryDelay time.Duration
}

// NewRedis creates a Redis-backed Locker. A non-positive ttl uses DefaultTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		rs:         redsync.New(goredis.NewPool(client)),
		ttl:        ttl,
		retryDelay: defaultRetryDelay,
	}
}

// WithLock retries acquisition for up to one TTL, or until ctx is done.
func (r *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := checkArgs(key, fn); err != nil {
		return err
	}

	mutex := r.rs.NewMutex(keyPrefix+key,
		redsync.WithExpiry(r.ttl),
		redsync.WithTries(int(r.ttl/r.retryDelay)+1),
		redsync.WithRetryDelay(r.retryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if isContention(err) || ctx.Err() != nil {
			return fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer func() {
		// Release even if the caller's context was cancelled mid-call.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(releaseCtx); !ok || err != nil {
			slog.Warn("Failed to release lock", "key", key, "unlock_ok", ok, "error", err)
		}
	}()

	return fn(ctx)
}

// isContention reports whether redsync gave up because the key is held.
func isContention(err error) bool {
	return errors.Is(err, redsync.ErrFailed) ||
		strings.Contains(err.Error(), "lock already taken") ||
		strings.Contains(err.Error(), "failed to acquire lock")
}
