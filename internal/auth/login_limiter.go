package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts failed logins per email and locks after a threshold.
type LoginLimiter interface {
	Locked(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type redisLoginLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
}

// NewRedisLoginLimiter builds a limiter backed by INCR/EXPIRE counters.
func NewRedisLoginLimiter(client *redis.Client, max int, window time.Duration) LoginLimiter {
	return &redisLoginLimiter{client: client, max: int64(max), window: window}
}

func loginKey(email string) string {
	return "helpdesk:login_failures:" + email
}

func (l *redisLoginLimiter) Locked(ctx context.Context, email string) (bool, error) {
	if l.max <= 0 {
		return false, nil
	}
	count, err := l.client.Get(ctx, loginKey(email)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count >= l.max, nil
}

func (l *redisLoginLimiter) RecordFailure(ctx context.Context, email string) error {
	key := loginKey(email)
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	return incr.Err()
}

func (l *redisLoginLimiter) Reset(ctx context.Context, email string) error {
	return l.client.Del(ctx, loginKey(email)).Err()
}

type memoryLoginLimiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	now      func() time.Time
	failures map[string]*failureWindow
}

type failureWindow struct {
	count   int
	expires time.Time
}

// NewMemoryLoginLimiter is used when Redis is not configured and in tests.
func NewMemoryLoginLimiter(max int, window time.Duration, now func() time.Time) LoginLimiter {
	if now == nil {
		now = time.Now
	}
	return &memoryLoginLimiter{max: max, window: window, now: now, failures: make(map[string]*failureWindow)}
}

func (l *memoryLoginLimiter) Locked(_ context.Context, email string) (bool, error) {
	if l.max <= 0 {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.failures[email]
	if !ok || l.now().After(w.expires) {
		return false, nil
	}
	return w.count >= l.max, nil
}

func (l *memoryLoginLimiter) RecordFailure(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	w, ok := l.failures[email]
	if !ok || now.After(w.expires) {
		w = &failureWindow{expires: now.Add(l.window)}
		l.failures[email] = w
	}
	w.count++
	return nil
}

func (l *memoryLoginLimiter) Reset(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, email)
	return nil
}
