package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"moneypall/internal/core"
	"moneypall/internal/log"
)

// SQLiteRepository persists every entity in a single SQLite file.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// DSN builds a modernc connection string with foreign keys enforced.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY on
	// read-to-write upgrades inside transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewWithDB(db, logger), nil
}

// NewWithDB wraps an already opened and migrated database.
func NewWithDB(db *sql.DB, logger *log.Logger) *SQLiteRepository {
	if logger == nil {
		logger = log.Discard()
	}
	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

// Users

const userColumns = `id, email, password_hash, first_name, last_name, phone, date_joined`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (core.User, error) {
	var (
		u      core.User
		joined int64
	)
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &joined); err != nil {
		return core.User{}, err
	}
	u.DateJoined = fromNanos(joined)
	return u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, phone, date_joined)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, toNanos(u.DateJoined))
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}
	u.ID = id
	u.DateJoined = fromNanos(toNanos(u.DateJoined))
	return u, nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser writes the profile fields; email and password are immutable here.
func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, phone = ? WHERE id = ?`,
		u.FirstName, u.LastName, u.Phone, u.ID)
	if err != nil {
		return core.User{}, fmt.Errorf("update user %d: %w", u.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.User{}, core.ErrUserNotFound
	}
	return r.UserByID(ctx, u.ID)
}

// DeleteUser removes the user with its token and records (by cascade) and
// purges every one-time code issued to the user's email.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer tx.Rollback()

	var email string
	err = tx.QueryRowContext(ctx, `SELECT email FROM users WHERE id = ?`, id).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("get user %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM otp_codes WHERE email = ?`, email); err != nil {
		return fmt.Errorf("purge otp codes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}

	r.logger.InfoContext(ctx, "User deleted", log.NewFields().
		WithUser(id, email).
		WithOperation(log.OpDelete).
		ToSlice()...)
	return nil
}

// One-time codes

func (r *SQLiteRepository) CreateCode(ctx context.Context, c core.OneTimeCode) (core.OneTimeCode, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_codes (email, code, created_at, is_confirmed) VALUES (?, ?, ?, 0)`,
		c.Email, c.Code, toNanos(c.CreatedAt))
	if err != nil {
		return core.OneTimeCode{}, fmt.Errorf("insert otp code: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.OneTimeCode{}, fmt.Errorf("otp code id: %w", err)
	}
	c.ID = id
	c.Confirmed = false
	return c, nil
}

func (r *SQLiteRepository) FirstCode(ctx context.Context, email, code string) (core.OneTimeCode, bool, error) {
	var (
		c       core.OneTimeCode
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, code, created_at, is_confirmed FROM otp_codes
		 WHERE email = ? AND code = ? ORDER BY id LIMIT 1`,
		email, code).Scan(&c.ID, &c.Email, &c.Code, &created, &c.Confirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return core.OneTimeCode{}, false, nil
	}
	if err != nil {
		return core.OneTimeCode{}, false, fmt.Errorf("find otp code: %w", err)
	}
	c.CreatedAt = fromNanos(created)
	return c, true, nil
}

func (r *SQLiteRepository) ConfirmCode(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_codes SET is_confirmed = 1 WHERE id = ? AND is_confirmed = 0`, id)
	if err != nil {
		return false, fmt.Errorf("confirm otp code %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm otp code %d: %w", id, err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) DeleteCodesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE created_at < ?`, toNanos(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete otp codes: %w", err)
	}
	return res.RowsAffected()
}

// Session tokens

func (r *SQLiteRepository) GetOrCreateToken(ctx context.Context, t core.SessionToken) (core.SessionToken, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (key, user_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		t.Key, t.UserID, toNanos(t.CreatedAt)); err != nil {
		return core.SessionToken{}, fmt.Errorf("insert token: %w", err)
	}

	var (
		out     core.SessionToken
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT key, user_id, created_at FROM auth_tokens WHERE user_id = ?`, t.UserID).
		Scan(&out.Key, &out.UserID, &created)
	if err != nil {
		return core.SessionToken{}, fmt.Errorf("get token: %w", err)
	}
	out.CreatedAt = fromNanos(created)
	return out, nil
}

func (r *SQLiteRepository) DeleteToken(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UserByToken(ctx context.Context, key string) (core.User, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.phone, u.date_joined
		 FROM auth_tokens t JOIN users u ON u.id = t.user_id
		 WHERE t.key = ?`, key)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, false, nil
	}
	if err != nil {
		return core.User{}, false, fmt.Errorf("get user by token: %w", err)
	}
	return u, true, nil
}

// Categories

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (kind, name, image) VALUES (?, ?, ?)`,
		string(c.Kind), c.Name, c.Image)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}
	c.ID = id
	return c, nil
}

func (r *SQLiteRepository) CategoryByID(ctx context.Context, kind core.RecordKind, id int64) (core.Category, error) {
	var c core.Category
	var k string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, kind, name, image FROM categories WHERE id = ? AND kind = ?`, id, string(kind)).
		Scan(&c.ID, &k, &c.Name, &c.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	c.Kind = core.RecordKind(k)
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, kind core.RecordKind) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, name, image FROM categories WHERE kind = ? ORDER BY name, id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var k string
		if err := rows.Scan(&c.ID, &k, &c.Name, &c.Image); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.RecordKind(k)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Records

func (r *SQLiteRepository) CreateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO records (user_id, kind, amount_cents, category_id, currency, description, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, string(rec.Kind), rec.Amount.Cents, rec.CategoryID, rec.Currency, rec.Description, rec.Date.String())
	if err != nil {
		return core.Record{}, fmt.Errorf("insert %s: %w", rec.Kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Record{}, fmt.Errorf("%s id: %w", rec.Kind, err)
	}
	rec.ID = id
	return rec, nil
}

// ListRecords returns the user's records of one kind, newest date first.
func (r *SQLiteRepository) ListRecords(ctx context.Context, userID int64, kind core.RecordKind) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, kind, amount_cents, category_id, currency, description, date
		 FROM records WHERE user_id = ? AND kind = ?
		 ORDER BY date DESC, id DESC`, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", kind, err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var (
			rec  core.Record
			k    string
			date string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &k, &rec.Amount.Cents, &rec.CategoryID, &rec.Currency, &rec.Description, &date); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Kind = core.RecordKind(k)
		if rec.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
