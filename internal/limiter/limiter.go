// Package limiter throttles actions per key (an email address, an IP).
package limiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"moneypall/internal/core"
)

// ErrUnavailable reports that the backing store could not answer.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Limiter reports core.ErrRateLimited once a key exceeds its budget.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// Config is a budget of Limit actions per Window.
type Config struct {
	Limit  int
	Window time.Duration
}

// Enabled reports whether the budget limits anything at all.
func (c Config) Enabled() bool {
	return c.Limit > 0 && c.Window > 0
}

// Noop never limits.
type Noop struct{}

func (Noop) Allow(context.Context, string) error { return nil }

// RedisFixedWindow counts actions with INCR and lets the key expire at the
// end of the window, so the budget is shared by every server instance.
// INCR and EXPIRE NX run in one transaction: a key never outlives its window.
type RedisFixedWindow struct {
	redis  redis.UniversalClient
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisFixedWindow(client redis.UniversalClient, prefix string, cfg Config) *RedisFixedWindow {
	return &RedisFixedWindow{
		redis:  client,
		prefix: prefix,
		limit:  int64(cfg.Limit),
		window: cfg.Window,
	}
}

func (l *RedisFixedWindow) key(k string) string {
	return l.prefix + ":" + strings.ToLower(k)
}

func (l *RedisFixedWindow) Allow(ctx context.Context, k string) error {
	key := l.key(k)
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if incr.Val() > l.limit {
		return core.ErrRateLimited
	}
	return nil
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is a per-process token bucket per key.
type Memory struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	idle     time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory refills Limit tokens evenly over Window, with a burst of Limit.
func NewMemory(cfg Config) *Memory {
	m := &Memory{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(float64(cfg.Limit) / cfg.Window.Seconds()),
		burst:    cfg.Limit,
		idle:     2 * cfg.Window,
		stop:     make(chan struct{}),
	}
	go m.cleanup(cfg.Window)
	return m
}

func (m *Memory) Allow(_ context.Context, k string) error {
	if !m.get(strings.ToLower(k)).Allow() {
		return core.ErrRateLimited
	}
	return nil
}

func (m *Memory) get(k string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.visitors[k]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.rate, m.burst)}
		m.visitors[k] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (m *Memory) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			for k, v := range m.visitors {
				if time.Since(v.lastSeen) > m.idle {
					delete(m.visitors, k)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}

// Stop ends the cleanup goroutine.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// New picks the Redis limiter when a client is given, the in-memory one
// otherwise, and Noop when the budget is disabled.
func New(client redis.UniversalClient, prefix string, cfg Config) Limiter {
	switch {
	case !cfg.Enabled():
		return Noop{}
	case client != nil:
		return NewRedisFixedWindow(client, prefix, cfg)
	default:
		return NewMemory(cfg)
	}
}

// Stop releases the background work of any limiter that has some. Safe to
// call more than once.
func Stop(limiters ...Limiter) {
	for _, l := range limiters {
		if s, ok := l.(interface{ Stop() }); ok {
			s.Stop()
		}
	}
}
