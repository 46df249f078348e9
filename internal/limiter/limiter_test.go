package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneypall/internal/core"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisFixedWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisFixedWindow(client, "otp:req", Config{Limit: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Allow(ctx, "a@x.com"))
	}
	assert.ErrorIs(t, l.Allow(ctx, "A@X.com"), core.ErrRateLimited)

	// another key has its own budget
	assert.NoError(t, l.Allow(ctx, "b@x.com"))

	assert.True(t, mr.Exists("otp:req:a@x.com"))
	mr.FastForward(time.Minute + time.Second)
	assert.NoError(t, l.Allow(ctx, "a@x.com"))
}

func TestRedisFixedWindowKeepsWindowStart(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisFixedWindow(client, "otp:verify", Config{Limit: 5, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "a@x.com"))
	mr.FastForward(30 * time.Second)
	require.NoError(t, l.Allow(ctx, "a@x.com"))

	// later hits do not push the expiry out
	ttl := mr.TTL("otp:verify:a@x.com")
	assert.LessOrEqual(t, ttl, 30*time.Second)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisFixedWindowRepairsKeyWithoutTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisFixedWindow(client, "otp:req", Config{Limit: 3, Window: time.Minute})
	ctx := context.Background()

	// a counter over the limit that lost its expiry
	require.NoError(t, mr.Set("otp:req:a@x.com", "9"))
	require.Zero(t, mr.TTL("otp:req:a@x.com"))

	assert.ErrorIs(t, l.Allow(ctx, "a@x.com"), core.ErrRateLimited)
	assert.Equal(t, time.Minute, mr.TTL("otp:req:a@x.com"))

	mr.FastForward(time.Minute + time.Second)
	assert.NoError(t, l.Allow(ctx, "a@x.com"), "the email is not locked out forever")
}

func TestRedisUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisFixedWindow(client, "otp", Config{Limit: 1, Window: time.Minute})
	mr.Close()

	err := l.Allow(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, core.ErrRateLimited)
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemory(Config{Limit: 2, Window: time.Hour})
	defer l.Stop()
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "a@x.com"))
	require.NoError(t, l.Allow(ctx, "a@x.com"))
	assert.ErrorIs(t, l.Allow(ctx, "a@x.com"), core.ErrRateLimited)
	assert.NoError(t, l.Allow(ctx, "b@x.com"))
	assert.Equal(t, 2, l.Len())
}

func TestNewSelectsImplementation(t *testing.T) {
	_, client := newTestRedis(t)

	assert.IsType(t, Noop{}, New(client, "p", Config{}))
	assert.IsType(t, &RedisFixedWindow{}, New(client, "p", Config{Limit: 1, Window: time.Second}))

	mem := New(nil, "p", Config{Limit: 1, Window: time.Second})
	require.IsType(t, &Memory{}, mem)
	mem.(*Memory).Stop()
}

func TestStopEndsMemoryCleanup(t *testing.T) {
	_, client := newTestRedis(t)
	m := NewMemory(Config{Limit: 1, Window: time.Minute})
	redisLimiter := New(client, "otp", Config{Limit: 1, Window: time.Minute})

	Stop(m, Noop{}, redisLimiter)
	Stop(m)

	select {
	case <-m.stop:
	default:
		t.Fatal("memory limiter still running cleanup")
	}
	assert.NoError(t, redisLimiter.Allow(context.Background(), "a@x.com"))
}
