// Package locker serializes writes per cart id. Session links and shipping
// gateway records are read-modify-write without optimistic locking, so two
// provider callbacks for the same cart must not interleave.
package locker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Locker grants a short-lived exclusive lock for a key.
type Locker interface {
	// Acquire returns a release func when the lock was obtained. ok is false
	// when another holder owns the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context), ok bool, err error)
}

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker is the cross-process lock used when the bridge runs more than
// one replica.
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	if client == nil {
		return nil
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error) {
	if l == nil || l.client == nil {
		return nil, false, errors.New("lock client not configured")
	}
	if key == "" {
		return nil, false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return nil, false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) {
		_ = l.script.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}

// MemoryLocker is the single-process fallback when no redis is configured.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: map[string]time.Time{}}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error) {
	if key == "" {
		return nil, false, errors.New("lock key is empty")
	}
	now := time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	if expiry, held := l.locks[key]; held && now.Before(expiry) {
		return nil, false, nil
	}
	l.locks[key] = now.Add(ttl)

	release := func(context.Context) {
		l.mu.Lock()
		delete(l.locks, key)
		l.mu.Unlock()
	}
	return release, true, nil
}
