package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func lockers(t *testing.T) map[string]Locker {
	_, client := setupRedis(t)
	return map[string]Locker{
		"local": NewLocal(),
		"redis": NewRedis(client, 2*time.Second),
	}
}

func TestWithLock_RunsAndPropagatesError(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			executed := false
			require.NoError(t, l.WithLock(ctx, "club:a", func(context.Context) error {
				executed = true
				return nil
			}))
			assert.True(t, executed)

			err := l.WithLock(ctx, "club:a", func(context.Context) error { return assert.AnError })
			assert.Equal(t, assert.AnError, err)

			assert.ErrorIs(t, l.WithLock(ctx, "", func(context.Context) error { return nil }), ErrEmptyKey)
			assert.Error(t, l.WithLock(ctx, "club:a", nil))
		})
	}
}

func TestWithLock_MutualExclusion(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var (
				inside  int32
				maxSeen int32
				wg      sync.WaitGroup
			)

			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := l.WithLock(ctx, "club:shared", func(context.Context) error {
						n := atomic.AddInt32(&inside, 1)
						for {
							m := atomic.LoadInt32(&maxSeen)
							if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
								break
							}
						}
						time.Sleep(5 * time.Millisecond)
						atomic.AddInt32(&inside, -1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
		})
	}
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	err := l.WithLock(ctx, "club:a", func(ctx context.Context) error {
		return l.WithLock(ctx, "club:b", func(context.Context) error { return nil })
	})
	assert.NoError(t, err)
	assert.Empty(t, l.slots)
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := NewLocal()
	held := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = l.WithLock(context.Background(), "club:a", func(context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.WithLock(ctx, "club:a", func(context.Context) error { return nil })
	assert.True(t, errors.Is(err, ErrNotAcquired))

	close(done)
}

func TestRedis_NotAcquiredWhileHeld(t *testing.T) {
	mr, client := setupRedis(t)
	require.NoError(t, mr.Set(keyPrefix+"club:a", "someone-else"))

	l := NewRedis(client, 100*time.Millisecond)
	l.retryDelay = 10 * time.Millisecond

	err := l.WithLock(context.Background(), "club:a", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrNotAcquired)

	// The foreign holder's key is untouched.
	got, err := mr.Get(keyPrefix + "club:a")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_ReleasesKeyAndSetsTTL(t *testing.T) {
	mr, client := setupRedis(t)
	l := NewRedis(client, 5*time.Second)

	err := l.WithLock(context.Background(), "club:a", func(context.Context) error {
		assert.True(t, mr.Exists(keyPrefix+"club:a"))
		assert.Equal(t, 5*time.Second, mr.TTL(keyPrefix+"club:a"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(keyPrefix+"club:a"))
}

func TestRedis_DoesNotDeleteForeignToken(t *testing.T) {
	mr, client := setupRedis(t)
	l := NewRedis(client, time.Second)

	err := l.WithLock(context.Background(), "club:a", func(context.Context) error {
		// Simulate expiry and takeover by another instance.
		mr.Set(keyPrefix+"club:a", "other-token")
		return nil
	})
	require.NoError(t, err)

	got, err := mr.Get(keyPrefix + "club:a")
	require.NoError(t, err)
	assert.Equal(t, "other-token", got)
}

func TestRedis_WaitsForRelease(t *testing.T) {
	_, client := setupRedis(t)
	first := NewRedis(client, 2*time.Second)
	second := NewRedis(client, 2*time.Second)
	second.retryDelay = 10 * time.Millisecond

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = first.WithLock(context.Background(), "club:a", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	time.AfterFunc(30*time.Millisecond, func() { close(release) })
	ran := false
	err := second.WithLock(context.Background(), "club:a", func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRedis_ContextCancelled(t *testing.T) {
	mr, client := setupRedis(t)
	require.NoError(t, mr.Set(keyPrefix+"club:a", "someone-else"))

	l := NewRedis(client, 5*time.Second)
	l.retryDelay = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := l.WithLock(ctx, "club:a", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestNewRedis_DefaultTTL(t *testing.T) {
	_, client := setupRedis(t)
	assert.Equal(t, DefaultTTL, NewRedis(client, 0).ttl)
}
