package report

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"moneypall/internal/core"
	"moneypall/internal/log"
)

// RecordLister loads one user's records of a single kind.
type RecordLister interface {
	ListRecords(ctx context.Context, userID int64, kind core.RecordKind) ([]core.Record, error)
}

// Service builds dashboards from stored records.
type Service struct {
	records RecordLister
	loc     *time.Location
	now     func() time.Time
	logger  *log.Logger
}

func NewService(records RecordLister, loc *time.Location, logger *log.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		records: records,
		loc:     loc,
		now:     time.Now,
		logger:  logger.WithComponent(log.ComponentReport),
	}
}

// WithClock replaces the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Dashboard loads incomes and expenses concurrently and aggregates them.
func (s *Service) Dashboard(ctx context.Context, userID int64) (core.Dashboard, error) {
	var incomes, expenses []core.Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incomes, err = s.records.ListRecords(gctx, userID, core.Income)
		if err != nil {
			return fmt.Errorf("load incomes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.records.ListRecords(gctx, userID, core.Expense)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Dashboard load failed", log.FieldUserID, userID, log.FieldError, err)
		return core.Dashboard{}, err
	}

	s.logger.DebugContext(ctx, "Dashboard computed",
		log.FieldUserID, userID,
		"incomes", len(incomes),
		"expenses", len(expenses))
	return Aggregate(incomes, expenses, s.now(), s.loc), nil
}
