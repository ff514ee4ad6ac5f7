package middleware

// ratelimit.go caps requests per client IP in fixed one-minute windows.
//
// Counters live in memory by default. With Redis configured they are shared
// across server instances: the increment and the expiry are applied in one
// Lua script so a crash between them cannot leave an immortal key.

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/bodymetrics/internal/logging"
	"github.com/redis/go-redis/v9"
)

// RateWindow is the length of one counting window.
const RateWindow = time.Minute

// RateCounter counts a hit for key and reports whether it is within budget.
type RateCounter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit rejects requests over budget with 429 and a RATE001 body.
// Counter failures let the request through.
func RateLimit(counter RateCounter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := counter.Allow(r.Context(), ClientIP(r))
			if err != nil {
				logging.FromContext(r.Context()).Warn("rate limit check failed", "error", err)
				allowed = true
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(RateWindow.Seconds())))
				writeJSONError(w, http.StatusTooManyRequests, "Too many requests", "RATE001")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// windowStart truncates t to the start of its counting window.
func windowStart(t time.Time) int64 {
	return t.Unix() / int64(RateWindow.Seconds())
}

// MemoryRateCounter is a single-process fixed-window counter.
type MemoryRateCounter struct {
	limit int
	now   func() time.Time

	mu     sync.Mutex
	window int64
	counts map[string]int
}

// NewMemoryRateCounter allows limit hits per key per window.
func NewMemoryRateCounter(limit int) *MemoryRateCounter {
	return &MemoryRateCounter{
		limit:  limit,
		now:    time.Now,
		counts: make(map[string]int),
	}
}

// Allow counts one hit. Counts of every key reset when the window rolls.
func (m *MemoryRateCounter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w := windowStart(m.now()); w != m.window {
		m.window = w
		clear(m.counts)
	}

	m.counts[key]++
	return m.counts[key] <= m.limit, nil
}

// fixedWindowScript increments KEYS[1] and sets its TTL on first use.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
    redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisRateCounter shares fixed-window counters through Redis.
type RedisRateCounter struct {
	client redis.UniversalClient
	limit  int
	prefix string
	now    func() time.Time
}

// NewRedisRateCounter allows limit hits per key per window.
func NewRedisRateCounter(client redis.UniversalClient, limit int) *RedisRateCounter {
	return &RedisRateCounter{
		client: client,
		limit:  limit,
		prefix: "bodymetrics:ratelimit",
		now:    time.Now,
	}
}

// Allow counts one hit in the current window.
func (c *RedisRateCounter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s:%d", c.prefix, key, windowStart(c.now()))
	ttl := int(2 * RateWindow.Seconds())

	count, err := fixedWindowScript.Run(ctx, c.client, []string{redisKey}, ttl).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return count <= int64(c.limit), nil
}
