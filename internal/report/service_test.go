package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneypall/internal/core"
	"moneypall/internal/storage/memory"
)

type failingLister struct{ kind core.RecordKind }

func (f failingLister) ListRecords(_ context.Context, _ int64, kind core.RecordKind) ([]core.Record, error) {
	if kind == f.kind {
		return nil, errors.New("disk on fire")
	}
	return nil, nil
}

func TestServiceDashboard(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.DefaultCategories...)
	u, err := store.CreateUser(ctx, core.User{Email: "a@b.uz"})
	require.NoError(t, err)
	other, err := store.CreateUser(ctx, core.User{Email: "c@d.uz"})
	require.NoError(t, err)

	today := core.DateOf(now, time.UTC)
	add := func(userID int64, kind core.RecordKind, cents int64, date core.Date) {
		cats, err := store.ListCategories(ctx, kind)
		require.NoError(t, err)
		require.NotEmpty(t, cats)
		_, err = store.CreateRecord(ctx, core.Record{
			UserID: userID, Kind: kind, Amount: core.Money{Cents: cents},
			CategoryID: cats[0].ID, Currency: "UZS", Date: date,
		})
		require.NoError(t, err)
	}
	add(u.ID, core.Income, 10000, today)
	add(u.ID, core.Expense, 2500, today.AddDays(-2))
	add(other.ID, core.Income, 99999, today)

	svc := NewService(store, time.UTC, nil).WithClock(func() time.Time { return now })
	d, err := svc.Dashboard(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(10000), d.DailyIncome.Cents)
	assert.Equal(t, int64(2500), d.WeeklyExpense.Cents)
	assert.Zero(t, d.DailyExpense.Cents)
	assert.Equal(t, int64(7500), d.Balance.Cents)
}

func TestServiceDashboardPropagatesLoadError(t *testing.T) {
	svc := NewService(failingLister{kind: core.Expense}, nil, nil)
	_, err := svc.Dashboard(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load expenses")
}
