// Package ratelimit provides fixed-window request limiting for the public
// lead-capture endpoints. Two implementations exist: an in-process window for
// single-instance deployments and tests, and a redis-backed window shared
// across replicas.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter reports whether one more request is allowed under the given key
// within the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter is a fixed-window counter held in process memory.
// State is lost on restart, which is acceptable for an abuse guard.
type MemoryLimiter struct {
	Max    int
	Window time.Duration

	mu      sync.Mutex
	windows map[string]*window

	// now is swappable in tests.
	now func() time.Time
}

type window struct {
	start time.Time
	count int
}

func NewMemoryLimiter(max int, windowLen time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		Max:     max,
		Window:  windowLen,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.Window {
		l.windows[key] = &window{start: now, count: 1}
		l.sweep(now)
		return true, nil
	}

	w.count++
	return w.count <= l.Max, nil
}

// sweep drops expired windows so the map does not grow with one entry per
// client forever. Called under the lock, only on window rollover.
func (l *MemoryLimiter) sweep(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.Window {
			delete(l.windows, key)
		}
	}
}

var fixedWindowScript = redis.NewScript(`
-- KEYS[1] = counter key
-- ARGV[1] = limit (int)
-- ARGV[2] = window_ms (int)
--
-- Returns:
--  1 if the request is allowed
--  0 if the limit for the current window is exhausted
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
else
  -- Ensure TTL exists even if key already existed without TTL
  if redis.call('PTTL', KEYS[1]) < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
  end
end

if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

// RedisLimiter is a fixed-window counter shared across instances.
// Keys expire with the window, so idle clients cost nothing.
type RedisLimiter struct {
	Client *redis.Client
	Max    int
	Window time.Duration

	// Prefix namespaces limiter keys in a shared redis.
	Prefix string
}

func NewRedisLimiter(client *redis.Client, max int, windowLen time.Duration) *RedisLimiter {
	return &RedisLimiter{
		Client: client,
		Max:    max,
		Window: windowLen,
		Prefix: "ratelimit:",
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	allowed, err := fixedWindowScript.Run(ctx, l.Client,
		[]string{l.Prefix + key},
		l.Max, l.Window.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return allowed == 1, nil
}
