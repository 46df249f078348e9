// Package memory is a process-local store used for development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"moneypall/internal/core"
)

type Store struct {
	mu         sync.Mutex
	nextID     int64
	users      map[int64]core.User
	codes      []core.OneTimeCode
	tokens     map[int64]core.SessionToken // by user id
	categories []core.Category
	records    []core.Record
}

// DefaultCategories seeds a new store.
var DefaultCategories = []core.Category{
	{Kind: core.Income, Name: "Salary"},
	{Kind: core.Income, Name: "Freelance"},
	{Kind: core.Income, Name: "Gifts"},
	{Kind: core.Expense, Name: "Food"},
	{Kind: core.Expense, Name: "Transport"},
	{Kind: core.Expense, Name: "Housing"},
	{Kind: core.Expense, Name: "Entertainment"},
}

// New returns a store seeded with the given categories.
func New(seed ...core.Category) *Store {
	s := &Store{
		users:  make(map[int64]core.User),
		tokens: make(map[int64]core.SessionToken),
	}
	for _, c := range seed {
		c.ID = s.id()
		s.categories = append(s.categories, c)
	}
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return core.User{}, core.ErrDuplicateEmail
		}
	}
	u.ID = s.id()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}

func (s *Store) UserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b core.User) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	cur.FirstName, cur.LastName, cur.Phone = u.FirstName, u.LastName, u.Phone
	s.users[u.ID] = cur
	return cur, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.tokens, id)
	s.records = slices.DeleteFunc(s.records, func(r core.Record) bool { return r.UserID == id })
	s.codes = slices.DeleteFunc(s.codes, func(c core.OneTimeCode) bool { return strings.EqualFold(c.Email, u.Email) })
	return nil
}

func (s *Store) CreateCode(_ context.Context, c core.OneTimeCode) (core.OneTimeCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	c.Confirmed = false
	s.codes = append(s.codes, c)
	return c, nil
}

// FirstCode scans in insertion order, which is id order.
func (s *Store) FirstCode(_ context.Context, email, code string) (core.OneTimeCode, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if strings.EqualFold(c.Email, email) && c.Code == code {
			return c, true, nil
		}
	}
	return core.OneTimeCode{}, false, nil
}

func (s *Store) ConfirmCode(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.codes {
		if s.codes[i].ID == id {
			if s.codes[i].Confirmed {
				return false, nil
			}
			s.codes[i].Confirmed = true
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteCodesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.codes)
	s.codes = slices.DeleteFunc(s.codes, func(c core.OneTimeCode) bool { return c.CreatedAt.Before(cutoff) })
	return int64(before - len(s.codes)), nil
}

func (s *Store) GetOrCreateToken(_ context.Context, t core.SessionToken) (core.SessionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[t.UserID]; !ok {
		return core.SessionToken{}, core.ErrUserNotFound
	}
	if existing, ok := s.tokens[t.UserID]; ok {
		return existing, nil
	}
	s.tokens[t.UserID] = t
	return t, nil
}

func (s *Store) DeleteToken(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, userID)
	return nil
}

func (s *Store) UserByToken(_ context.Context, key string) (core.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uid, t := range s.tokens {
		if t.Key == key {
			u, ok := s.users[uid]
			return u, ok, nil
		}
	}
	return core.User{}, false, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) CategoryByID(_ context.Context, kind core.RecordKind, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID == id && c.Kind == kind {
			return c, nil
		}
	}
	return core.Category{}, core.ErrCategoryNotFound
}

func (s *Store) ListCategories(_ context.Context, kind core.RecordKind) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b core.Category) int {
		if n := strings.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return int(a.ID - b.ID)
	})
	return out, nil
}

func (s *Store) CreateRecord(_ context.Context, r core.Record) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[r.UserID]; !ok {
		return core.Record{}, core.ErrUserNotFound
	}
	r.ID = s.id()
	s.records = append(s.records, r)
	return r, nil
}

// ListRecords returns newest date first, ties broken by id descending.
func (s *Store) ListRecords(_ context.Context, userID int64, kind core.RecordKind) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Record
	for _, r := range s.records {
		if r.UserID == userID && r.Kind == kind {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b core.Record) int {
		if n := b.Date.Compare(a.Date.Time); n != 0 {
			return n
		}
		return int(b.ID - a.ID)
	})
	return out, nil
}
