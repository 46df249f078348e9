// Package session maps bearer tokens to users.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"moneypall/internal/cache"
	"moneypall/internal/core"
	"moneypall/internal/log"
)

// KeyBytes is the amount of randomness in a token; keys are hex encoded.
const KeyBytes = 20

// Store keeps at most one token per user.
type Store interface {
	// GetOrCreateToken inserts t unless the user already has a token and
	// returns whichever token is stored.
	GetOrCreateToken(ctx context.Context, t core.SessionToken) (core.SessionToken, error)
	DeleteToken(ctx context.Context, userID int64) error
	UserByToken(ctx context.Context, key string) (core.User, bool, error)
}

// Issuer issues, revokes and resolves session tokens.
type Issuer struct {
	store  Store
	cache  cache.Cache[core.User]
	group  singleflight.Group
	now    func() time.Time
	logger *log.Logger

	// epoch counts evictions. A lookup that started before an eviction
	// must not repopulate the cache.
	mu    sync.Mutex
	epoch uint64
}

type Option func(*Issuer)

// WithCache caches Resolve results. Revocation evicts them.
func WithCache(c cache.Cache[core.User]) Option {
	return func(i *Issuer) { i.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(i *Issuer) { i.logger = logger.WithComponent(log.ComponentSession) }
}

func NewIssuer(store Store, opts ...Option) *Issuer {
	i := &Issuer{
		store:  store,
		now:    time.Now,
		logger: log.Discard().WithComponent(log.ComponentSession),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// GenerateKey returns KeyBytes of crypto randomness as lowercase hex.
func GenerateKey() (string, error) {
	b := make([]byte, KeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IssueFor returns the user's token, creating it when absent. Repeated and
// concurrent calls return the same key.
func (i *Issuer) IssueFor(ctx context.Context, user core.User) (string, error) {
	v, err, _ := i.group.Do(strconv.FormatInt(user.ID, 10), func() (any, error) {
		key, err := GenerateKey()
		if err != nil {
			return "", err
		}
		tok, err := i.store.GetOrCreateToken(ctx, core.SessionToken{
			Key:       key,
			UserID:    user.ID,
			CreatedAt: i.now(),
		})
		if err != nil {
			return "", fmt.Errorf("issue token: %w", err)
		}
		return tok.Key, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// RevokeFor deletes the user's token. Revoking a user without a token is not an error.
func (i *Issuer) RevokeFor(ctx context.Context, user core.User) error {
	if err := i.store.DeleteToken(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	i.evict(user.ID)
	i.logger.InfoContext(ctx, "Session revoked", log.NewFields().
		WithUser(user.ID, "").
		WithOperation(log.OpRevoke).
		ToSlice()...)
	return nil
}

// Resolve returns the user owning key. ok is false for unknown keys.
func (i *Issuer) Resolve(ctx context.Context, key string) (core.User, bool, error) {
	if key == "" {
		return core.User{}, false, nil
	}
	if i.cache == nil {
		return i.lookup(ctx, key)
	}
	if u, ok := i.cache.Get(key); ok {
		return u, true, nil
	}

	i.mu.Lock()
	epoch := i.epoch
	i.mu.Unlock()

	u, ok, err := i.lookup(ctx, key)
	if err != nil || !ok {
		return u, ok, err
	}

	i.mu.Lock()
	if i.epoch == epoch {
		i.cache.Set(key, u)
	}
	i.mu.Unlock()
	return u, true, nil
}

func (i *Issuer) lookup(ctx context.Context, key string) (core.User, bool, error) {
	u, ok, err := i.store.UserByToken(ctx, key)
	if err != nil {
		return core.User{}, false, fmt.Errorf("resolve token: %w", err)
	}
	return u, ok, nil
}

// Forget evicts cached lookups for a user whose profile changed.
func (i *Issuer) Forget(userID int64) {
	i.evict(userID)
}

func (i *Issuer) evict(userID int64) {
	if i.cache == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.epoch++
	i.cache.DeleteFunc(func(_ string, u core.User) bool { return u.ID == userID })
}
