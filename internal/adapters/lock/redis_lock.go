package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

// refreshFailureLimit aborts a run after this many consecutive failed
// refreshes; the lock may already belong to someone else.
const refreshFailureLimit = 3

var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLock is a named mutex with TTL over Redis. Acquire is first-writer-
// wins; refresh and release only act while the caller still holds the key.
type RedisLock struct {
	client redis.UniversalClient
	clock  shared.Clock
}

// NewRedisLock creates a lock manager over an open Redis client.
func NewRedisLock(client redis.UniversalClient, clock shared.Clock) *RedisLock {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &RedisLock{client: client, clock: clock}
}

func key(name string) string {
	return "lock:" + name
}

// Acquire stores name→holder with the TTL if the key is absent. Returns a
// LockHeld error when another holder owns the key.
func (l *RedisLock) Acquire(ctx context.Context, name, holder string, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, key(name), holder, ttl).Result()
	if err != nil {
		return shared.NewTransientError("lock_acquire", "redis unavailable", err)
	}
	if !ok {
		current, _ := l.client.Get(ctx, key(name)).Result()
		return shared.NewLockHeldError(name, current)
	}
	return nil
}

// Refresh extends the TTL only while holder still owns the key.
func (l *RedisLock) Refresh(ctx context.Context, name, holder string, ttl time.Duration) error {
	n, err := refreshScript.Run(ctx, l.client, []string{key(name)}, holder, ttl.Milliseconds()).Int()
	if err != nil {
		return shared.NewTransientError("lock_refresh", "redis unavailable", err)
	}
	if n == 0 {
		return shared.NewLockHeldError(name, "another holder")
	}
	return nil
}

// Release deletes the key only while holder still owns it.
func (l *RedisLock) Release(ctx context.Context, name, holder string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{key(name)}, holder).Int()
	if err != nil {
		return shared.NewTransientError("lock_release", "redis unavailable", err)
	}
	if n == 0 {
		return shared.NewLockHeldError(name, "another holder")
	}
	return nil
}

// KeepAlive refreshes the lock at TTL/3 until ctx is done or stop is called.
// The returned channel closes after three consecutive refresh failures;
// the run must abort when that happens.
func (l *RedisLock) KeepAlive(ctx context.Context, name, holder string, ttl time.Duration) (<-chan struct{}, func()) {
	lost := make(chan struct{})
	done := make(chan struct{})

	go func() {
		interval := ttl / 3
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if err := l.Refresh(ctx, name, holder, ttl); err != nil {
					failures++
					if failures >= refreshFailureLimit {
						close(lost)
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

	var stopped bool
	stop := func() {
		if !stopped {
			stopped = true
			close(done)
		}
	}
	return lost, stop
}

// NewClient opens a Redis client from a URL of the form
// redis://[user:pass@]host:port/db.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
