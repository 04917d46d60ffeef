package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only while it still carries our token, so a
// holder whose TTL expired cannot free somebody else's lock.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisLocker shares per-account locks between service instances.
type RedisLocker struct {
	client   redis.Cmdable
	ttl      time.Duration
	poll     time.Duration
	prefix   string
	newToken func() string
}

// RedisOption configures a RedisLocker.
type RedisOption func(*RedisLocker)

// WithPollInterval sets how often a waiting Acquire retries SET NX.
func WithPollInterval(d time.Duration) RedisOption {
	return func(l *RedisLocker) { l.poll = d }
}

// WithTokenFunc overrides how lock tokens are generated.
func WithTokenFunc(f func() string) RedisOption {
	return func(l *RedisLocker) { l.newToken = f }
}

// NewRedisLocker creates a locker whose keys expire after ttl.
func NewRedisLocker(client redis.Cmdable, ttl time.Duration, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		client:   client,
		ttl:      ttl,
		poll:     25 * time.Millisecond,
		prefix:   "bahikhata:lock:",
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ Locker = (*RedisLocker)(nil)

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	k := l.prefix + key
	token := l.newToken()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(k, token), nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrNotAcquired
		}
		if err := sleep(ctx, min(l.poll, remaining)); err != nil {
			return nil, err
		}
	}
}

func (l *RedisLocker) releaser(k, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; the key must still go.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.client.Eval(ctx, releaseScript, []string{k}, token).Err(); err != nil {
				slog.Warn("Failed to release redis lock, it will expire", slog.String("key", k), slog.String("error", err.Error()))
			}
		})
	}
}
