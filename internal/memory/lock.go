package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when another turn holds the thread lock for
// longer than the wait budget.
var ErrLockTimeout = errors.New("thread lock wait timed out")

const lockPollInterval = 50 * time.Millisecond

// Deletes the key only if it still holds our token, so an expired lock that
// was taken over by another turn is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ThreadLock serializes turns on the same thread across API instances.
type ThreadLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewThreadLock creates a lock whose keys expire after ttl, so a crashed
// holder never blocks a thread for longer than that.
func NewThreadLock(client *redis.Client, ttl time.Duration) *ThreadLock {
	return &ThreadLock{client: client, ttl: ttl}
}

func lockKey(threadID string) string {
	return fmt.Sprintf("memlock:%s", threadID)
}

// Acquire blocks until the thread is free, ctx is done or wait elapses.
// The returned func releases the lock and is safe to call more than once.
func (l *ThreadLock) Acquire(ctx context.Context, threadID string, wait time.Duration) (func(), error) {
	key := lockKey(threadID)
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("setnx %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

func (l *ThreadLock) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, token) })
	}
}

func (l *ThreadLock) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		slog.Warn("memory: releasing thread lock", "key", key, "error", err)
	}
}
