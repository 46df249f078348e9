// Package otp issues and verifies short-lived numeric login codes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"moneypall/internal/core"
	"moneypall/internal/log"
)

// TTL is how long an issued code stays valid.
const TTL = 5 * time.Minute

var (
	ErrCodeNotFound = errors.New("invalid otp")
	ErrCodeExpired  = errors.New("otp expired")
	ErrCodeUsed     = errors.New("otp already used")
)

// Store persists one-time codes. Codes are never tied to a user row.
type Store interface {
	CreateCode(ctx context.Context, c core.OneTimeCode) (core.OneTimeCode, error)
	// FirstCode returns the earliest stored code matching email and code.
	FirstCode(ctx context.Context, email, code string) (core.OneTimeCode, bool, error)
	// ConfirmCode flips is_confirmed from false to true and reports whether
	// this call did the flip.
	ConfirmCode(ctx context.Context, id int64) (bool, error)
	DeleteCodesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RandomSource yields a uniform integer in [0, n). *math/rand/v2.Rand satisfies it.
type RandomSource interface {
	Int64N(n int64) int64
}

type cryptoSource struct{}

func (cryptoSource) Int64N(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		panic(fmt.Sprintf("otp: crypto/rand failed: %v", err))
	}
	return v.Int64()
}

// CryptoSource draws from crypto/rand.
func CryptoSource() RandomSource { return cryptoSource{} }

// Ledger issues codes and checks them against the store.
type Ledger struct {
	store  Store
	rand   RandomSource
	now    func() time.Time
	logger *log.Logger
}

type Option func(*Ledger)

func WithRandomSource(r RandomSource) Option {
	return func(l *Ledger) { l.rand = r }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger.WithComponent(log.ComponentOTP) }
}

func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		rand:   cryptoSource{},
		now:    time.Now,
		logger: log.Discard().WithComponent(log.ComponentOTP),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// newCode returns a six digit code in [100000, 999999]. Codes with a
// leading zero are never produced.
func (l *Ledger) newCode() string {
	return strconv.FormatInt(100000+l.rand.Int64N(900000), 10)
}

// Issue stores a fresh unconfirmed code for email. Earlier codes stay valid.
func (l *Ledger) Issue(ctx context.Context, email string) (core.OneTimeCode, error) {
	email = core.NormalizeEmail(email)
	if email == "" {
		return core.OneTimeCode{}, core.FieldError("email", "This field is required.")
	}

	c, err := l.store.CreateCode(ctx, core.OneTimeCode{
		Email:     email,
		Code:      l.newCode(),
		CreatedAt: l.now(),
	})
	if err != nil {
		return core.OneTimeCode{}, fmt.Errorf("store otp: %w", err)
	}

	l.logger.InfoContext(ctx, "OTP issued", log.NewFields().
		WithUser(0, email).
		WithOperation(log.OpIssue).
		ToSlice()...)
	return c, nil
}

// Verify consumes the code. Checks run in order: unknown, expired, used.
func (l *Ledger) Verify(ctx context.Context, email, code string) (core.OneTimeCode, error) {
	email = core.NormalizeEmail(email)
	code = strings.TrimSpace(code)

	c, ok, err := l.store.FirstCode(ctx, email, code)
	if err != nil {
		return core.OneTimeCode{}, fmt.Errorf("find otp: %w", err)
	}
	if !ok {
		return core.OneTimeCode{}, ErrCodeNotFound
	}
	if l.now().Sub(c.CreatedAt) >= TTL {
		return core.OneTimeCode{}, ErrCodeExpired
	}
	if c.Confirmed {
		return core.OneTimeCode{}, ErrCodeUsed
	}

	swapped, err := l.store.ConfirmCode(ctx, c.ID)
	if err != nil {
		return core.OneTimeCode{}, fmt.Errorf("confirm otp: %w", err)
	}
	if !swapped {
		return core.OneTimeCode{}, ErrCodeUsed
	}
	c.Confirmed = true

	l.logger.InfoContext(ctx, "OTP verified", log.NewFields().
		WithUser(0, email).
		WithOperation(log.OpVerify).
		ToSlice()...)
	return c, nil
}

// Sweep deletes codes created before olderThan ago.
func (l *Ledger) Sweep(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := l.now().Add(-olderThan)
	n, err := l.store.DeleteCodesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep otp: %w", err)
	}
	return n, nil
}
