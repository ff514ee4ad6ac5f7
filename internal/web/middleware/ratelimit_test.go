package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateCounter_Window(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)
	c := NewMemoryRateCounter(2)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	for i := range 2 {
		ok, err := c.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i)
	}
	ok, _ := c.Allow(ctx, "1.2.3.4")
	assert.False(t, ok, "third hit in window")

	ok, _ = c.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "other keys have their own budget")

	now = now.Add(RateWindow)
	ok, _ = c.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "budget resets in the next window")
	assert.Len(t, c.counts, 1)
}

func newRedisCounter(t *testing.T, limit int) (*RedisRateCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRateCounter(client, limit), mr
}

func TestRedisRateCounter_Allow(t *testing.T) {
	c, mr := newRedisCounter(t, 3)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for range 3 {
		ok, err := c.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := c.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	key := fmt.Sprintf("bodymetrics:ratelimit:10.0.0.1:%d", windowStart(now))
	assert.True(t, mr.Exists(key), "keys: %v", mr.Keys())
	assert.Equal(t, 2*RateWindow, mr.TTL(key))

	now = now.Add(RateWindow)
	ok, err = c.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRateCounter_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	c := NewRedisRateCounter(client, 1)
	mr.Close()

	_, err = c.Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)
}

type stubCounter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubCounter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_Rejects(t *testing.T) {
	counter := &stubCounter{allow: false}
	h := RateLimit(counter)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/import/device", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, []string{"192.0.2.7"}, counter.keys)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RATE001", body["code"])
}

func TestRateLimit_FailsOpen(t *testing.T) {
	h := RateLimit(&stubCounter{err: errors.New("redis down")})(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
