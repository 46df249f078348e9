package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneypall/internal/core"
	"moneypall/internal/log"
)

// Store is the persistence the ledger service writes through.
type Store interface {
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	CategoryByID(ctx context.Context, kind core.RecordKind, id int64) (core.Category, error)
	ListCategories(ctx context.Context, kind core.RecordKind) ([]core.Category, error)
	CreateRecord(ctx context.Context, r core.Record) (core.Record, error)
	ListRecords(ctx context.Context, userID int64, kind core.RecordKind) ([]core.Record, error)
}

// RecordInput is an income or expense as submitted by a client. Amount,
// category and date arrive as strings and are parsed here.
type RecordInput struct {
	Amount      string
	Category    string
	Currency    string
	Description string
	Date        string
}

// LedgerService validates and stores categories, incomes and expenses.
type LedgerService struct {
	store  Store
	loc    *time.Location
	now    func() time.Time
	logger *log.Logger
}

func NewLedgerService(store Store, loc *time.Location, logger *log.Logger) *LedgerService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerService{
		store:  store,
		loc:    loc,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentLedger),
	}
}

// WithClock replaces the time source used for the default record date.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// CreateCategory adds a global category of the given kind.
func (s *LedgerService) CreateCategory(ctx context.Context, kind core.RecordKind, name, image string) (core.Category, error) {
	c := core.Category{Kind: kind, Name: strings.TrimSpace(name), Image: strings.TrimSpace(image)}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category created",
		log.FieldRecordKind, kind.String(),
		"category_id", created.ID,
		"name", created.Name)
	return created, nil
}

func (s *LedgerService) ListCategories(ctx context.Context, kind core.RecordKind) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// CreateRecord validates in and stores it for userID. A category that does not
// exist for kind yields core.ErrCategoryNotFound.
func (s *LedgerService) CreateRecord(ctx context.Context, userID int64, kind core.RecordKind, in RecordInput) (core.Record, error) {
	rec, categoryID, err := s.parse(userID, kind, in)
	if err != nil {
		return core.Record{}, err
	}

	if _, err := s.store.CategoryByID(ctx, kind, categoryID); err != nil {
		if errors.Is(err, core.ErrCategoryNotFound) {
			return core.Record{}, core.ErrCategoryNotFound
		}
		return core.Record{}, fmt.Errorf("load category: %w", err)
	}

	created, err := s.store.CreateRecord(ctx, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("create %s: %w", kind, err)
	}

	fields := log.NewFields().
		WithUser(userID, "").
		WithRecord(kind.String(), created.ID, created.Amount.String(), created.Currency)
	s.logger.InfoContext(ctx, "Record created", fields.ToSlice()...)
	return created, nil
}

func (s *LedgerService) ListRecords(ctx context.Context, userID int64, kind core.RecordKind) ([]core.Record, error) {
	recs, err := s.store.ListRecords(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return recs, nil
}

func (s *LedgerService) parse(userID int64, kind core.RecordKind, in RecordInput) (core.Record, int64, error) {
	verr := core.NewValidationError()
	rec := core.Record{
		UserID:      userID,
		Kind:        kind,
		Currency:    strings.ToUpper(strings.TrimSpace(in.Currency)),
		Description: strings.TrimSpace(in.Description),
	}

	if strings.TrimSpace(in.Amount) == "" {
		verr.Add("amount", "This field is required.")
	} else if cents, err := core.ParseDecimalToCents(in.Amount); err != nil {
		verr.Add("amount", "A valid positive number is required.")
	} else {
		rec.Amount = core.Money{Cents: cents}
	}

	var categoryID int64
	if raw := strings.TrimSpace(in.Category); raw == "" {
		verr.Add("category", "This field is required.")
	} else if id, err := strconv.ParseInt(raw, 10, 64); err != nil || id <= 0 {
		verr.Add("category", "Incorrect type. Expected pk value.")
	} else {
		categoryID = id
		rec.CategoryID = id
	}

	if raw := strings.TrimSpace(in.Date); raw == "" {
		rec.Date = core.DateOf(s.now(), s.loc)
	} else if d, err := core.ParseDate(raw); err != nil {
		verr.Add("date", "Date has wrong format. Use YYYY-MM-DD.")
	} else {
		rec.Date = d
	}

	if rec.Currency == "" {
		verr.Add("currency", "This field is required.")
	}

	if verr.HasErrors() {
		return core.Record{}, 0, verr
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, 0, err
	}
	return rec, categoryID, nil
}
