// Package auth drives registration, OTP login and account lifecycle.
//
// Per email the flow is: no challenge, then challenge issued (RequestLogin),
// then authenticated once VerifyOTP succeeds. Failed verification leaves the
// challenge in place. Logout and DeleteAccount return the user to the start.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moneypall/internal/core"
	"moneypall/internal/credentials"
	"moneypall/internal/limiter"
	"moneypall/internal/log"
	"moneypall/internal/notify"
	"moneypall/internal/otp"
	"moneypall/internal/session"
)

const (
	MinPasswordLength = 8
	maxNameLength     = 150
	maxPhoneLength    = 20
)

// UserStore is the credential store.
type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	UserByEmail(ctx context.Context, email string) (core.User, error)
	UserByID(ctx context.Context, id int64) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	UpdateUser(ctx context.Context, u core.User) (core.User, error)
	// DeleteUser removes the user with its token and records, and purges
	// every one-time code stored for its email.
	DeleteUser(ctx context.Context, id int64) error
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// ProfileInput is a partial update; nil fields are left unchanged.
type ProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// Challenge is the outcome of a login request. The code is stored even when
// DeliveryErr is set.
type Challenge struct {
	Email       string
	CodeID      int64
	DeliveryErr error
}

type Orchestrator struct {
	users    UserStore
	ledger   *otp.Ledger
	sessions *session.Issuer
	notifier notify.Notifier
	hasher   credentials.Hasher

	requestLimit limiter.Limiter
	verifyLimit  limiter.Limiter
	notifyTO     time.Duration
	logger       *log.Logger
}

type Option func(*Orchestrator)

func WithHasher(h credentials.Hasher) Option {
	return func(o *Orchestrator) { o.hasher = h }
}

// WithLimiters throttles login requests and verification attempts per email.
func WithLimiters(request, verify limiter.Limiter) Option {
	return func(o *Orchestrator) {
		if request != nil {
			o.requestLimit = request
		}
		if verify != nil {
			o.verifyLimit = verify
		}
	}
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.notifyTO = d }
}

func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger.WithComponent(log.ComponentAuth) }
}

func NewOrchestrator(users UserStore, ledger *otp.Ledger, sessions *session.Issuer, notifier notify.Notifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		users:        users,
		ledger:       ledger,
		sessions:     sessions,
		notifier:     notifier,
		hasher:       credentials.NewArgon2(),
		requestLimit: limiter.Noop{},
		verifyLimit:  limiter.Noop{},
		notifyTO:     notify.DefaultTimeout,
		logger:       log.Discard().WithComponent(log.ComponentAuth),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register creates an account and returns it with a session token.
func (o *Orchestrator) Register(ctx context.Context, in RegisterInput) (core.User, string, error) {
	email := core.NormalizeEmail(in.Email)
	verr := core.NewValidationError()
	switch {
	case email == "":
		verr.Add("email", "This field is required.")
	case !core.ValidEmail(email):
		verr.Add("email", "Enter a valid email address.")
	}
	if in.Password == "" {
		verr.Add("password", "This field is required.")
	} else if len(in.Password) < MinPasswordLength {
		verr.Add("password", fmt.Sprintf("Ensure this field has at least %d characters.", MinPasswordLength))
	}
	checkProfileFields(verr, &in.FirstName, &in.LastName, &in.Phone)
	if err := verr.OrNil(); err != nil {
		return core.User{}, "", err
	}

	hash, err := o.hasher.Hash(in.Password)
	if err != nil {
		return core.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := o.users.CreateUser(ctx, core.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		DateJoined:   time.Now().UTC(),
	})
	if errors.Is(err, core.ErrDuplicateEmail) {
		return core.User{}, "", core.FieldError("email", "user with this email already exists.")
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("create user: %w", err)
	}

	token, err := o.sessions.IssueFor(ctx, user)
	if err != nil {
		return core.User{}, "", err
	}

	o.logger.InfoContext(ctx, "User registered", log.NewFields().
		WithUser(user.ID, user.Email).
		WithOperation(log.OpCreate).
		ToSlice()...)
	return user, token, nil
}

// RequestLogin issues a code for a registered email and dispatches it.
// Delivery problems are reported on the Challenge, never as an error.
func (o *Orchestrator) RequestLogin(ctx context.Context, email string) (Challenge, error) {
	email = core.NormalizeEmail(email)
	if email == "" {
		return Challenge{}, core.FieldError("email", "Email is required")
	}
	if _, err := o.users.UserByEmail(ctx, email); err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return Challenge{}, core.ErrUserNotFound
		}
		return Challenge{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := o.throttle(ctx, o.requestLimit, email, "request"); err != nil {
		return Challenge{}, err
	}

	code, err := o.ledger.Issue(ctx, email)
	if err != nil {
		return Challenge{}, err
	}

	ch := Challenge{Email: email, CodeID: code.ID}
	if err := notify.Dispatch(ctx, o.notifier, notify.OTPMessage(email, code.Code), o.notifyTO); err != nil {
		ch.DeliveryErr = err
		o.logger.WarnContext(ctx, "OTP delivery failed", log.NewFields().
			WithUser(0, email).
			WithOperation(log.OpDispatch).
			WithError(err).
			ToSlice()...)
	}
	return ch, nil
}

// VerifyOTP consumes a code and returns the user with a session token.
func (o *Orchestrator) VerifyOTP(ctx context.Context, email, code string) (core.User, string, error) {
	email = core.NormalizeEmail(email)
	code = strings.TrimSpace(code)

	verr := core.NewValidationError()
	if email == "" {
		verr.Add("email", "This field is required.")
	}
	if code == "" {
		verr.Add("code", "This field is required.")
	} else if !core.IsNumericCode(code) {
		verr.Add("code", fmt.Sprintf("Ensure this field has exactly %d digits.", core.CodeLength))
	}
	if err := verr.OrNil(); err != nil {
		return core.User{}, "", err
	}

	if err := o.throttle(ctx, o.verifyLimit, email, "verify"); err != nil {
		return core.User{}, "", err
	}

	if _, err := o.ledger.Verify(ctx, email, code); err != nil {
		return core.User{}, "", err
	}

	user, err := o.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return core.User{}, "", core.ErrUserNotFound
		}
		return core.User{}, "", fmt.Errorf("lookup user: %w", err)
	}

	token, err := o.sessions.IssueFor(ctx, user)
	if err != nil {
		return core.User{}, "", err
	}
	o.logger.InfoContext(ctx, "User logged in", log.NewFields().
		WithUser(user.ID, user.Email).
		WithOperation(log.OpVerify).
		ToSlice()...)
	return user, token, nil
}

// Logout revokes the user's token, if any.
func (o *Orchestrator) Logout(ctx context.Context, user core.User) error {
	return o.sessions.RevokeFor(ctx, user)
}

// DeleteAccount revokes the token first so no cached lookup outlives the user.
func (o *Orchestrator) DeleteAccount(ctx context.Context, user core.User) error {
	if err := o.sessions.RevokeFor(ctx, user); err != nil {
		return err
	}
	if err := o.users.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	o.logger.InfoContext(ctx, "Account deleted", log.NewFields().
		WithUser(user.ID, user.Email).
		WithOperation(log.OpDelete).
		ToSlice()...)
	return nil
}

// Profile returns the stored user, which may be fresher than the cached one.
func (o *Orchestrator) Profile(ctx context.Context, user core.User) (core.User, error) {
	return o.GetUser(ctx, user.ID)
}

func (o *Orchestrator) UpdateProfile(ctx context.Context, user core.User, in ProfileInput) (core.User, error) {
	current, err := o.GetUser(ctx, user.ID)
	if err != nil {
		return core.User{}, err
	}
	if in.FirstName != nil {
		current.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		current.LastName = *in.LastName
	}
	if in.Phone != nil {
		current.Phone = *in.Phone
	}

	verr := core.NewValidationError()
	checkProfileFields(verr, &current.FirstName, &current.LastName, &current.Phone)
	if err := verr.OrNil(); err != nil {
		return core.User{}, err
	}

	updated, err := o.users.UpdateUser(ctx, current)
	if err != nil {
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	o.sessions.Forget(user.ID)
	return updated, nil
}

func (o *Orchestrator) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := o.users.UserByID(ctx, id)
	if errors.Is(err, core.ErrUserNotFound) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (o *Orchestrator) ListUsers(ctx context.Context) ([]core.User, error) {
	users, err := o.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// checkProfileFields trims the optional profile fields in place.
func checkProfileFields(verr *core.ValidationError, first, last, phone *string) {
	*first = strings.TrimSpace(*first)
	*last = strings.TrimSpace(*last)
	*phone = strings.TrimSpace(*phone)
	if len(*first) > maxNameLength {
		verr.Add("first_name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLength))
	}
	if len(*last) > maxNameLength {
		verr.Add("last_name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLength))
	}
	if len(*phone) > maxPhoneLength {
		verr.Add("phone", fmt.Sprintf("Ensure this field has no more than %d characters.", maxPhoneLength))
	}
}

// throttle applies l to email. An unreachable limiter backend is logged and
// the attempt is let through.
func (o *Orchestrator) throttle(ctx context.Context, l limiter.Limiter, email, action string) error {
	err := l.Allow(ctx, email)
	if err == nil {
		return nil
	}
	fields := append(log.NewFields().WithUser(0, email).WithError(err).ToSlice(), "action", action)
	if errors.Is(err, limiter.ErrUnavailable) {
		o.logger.ErrorContext(ctx, "OTP throttle unavailable, allowing attempt", fields...)
		return nil
	}
	o.logger.WarnContext(ctx, "OTP throttle rejected", fields...)
	return err
}
