package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/mealrec/internal/config"
)

func newTestRateLimiter(t *testing.T, requests int) (*RateLimitService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := config.RateLimitConfig{Enabled: true, Requests: requests, Window: time.Minute}
	return NewRateLimitService(cfg, testLogger(), client), mr
}

func TestRateLimitService_IsAllowed(t *testing.T) {
	svc, _ := newTestRateLimiter(t, 3)
	ctx := context.Background()

	var allowed []bool
	for i := 0; i < 5; i++ {
		ok, info := svc.IsAllowed(ctx, "10.0.0.1")
		allowed = append(allowed, ok)
		assert.Equal(t, 3, info.Limit)
	}

	assert.Equal(t, []bool{true, true, true, false, false}, allowed)

	ok, info := svc.IsAllowed(ctx, "10.0.0.2")
	assert.True(t, ok)
	assert.Equal(t, 3, info.Remaining)
}

func TestRateLimitService_WindowSlides(t *testing.T) {
	svc, _ := newTestRateLimiter(t, 1)
	ctx := context.Background()

	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	ok, _ := svc.IsAllowed(ctx, "client")
	require.True(t, ok)
	ok, _ = svc.IsAllowed(ctx, "client")
	require.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, info := svc.IsAllowed(ctx, "client")
	assert.True(t, ok)
	assert.Equal(t, now.Add(time.Minute).Unix(), info.ResetTime)
}

func TestRateLimitService_RedisDown(t *testing.T) {
	svc, mr := newTestRateLimiter(t, 10)
	mr.Close()

	ok, info := svc.IsAllowed(context.Background(), "client")
	assert.True(t, ok)
	assert.Equal(t, 9, info.Remaining)
}
