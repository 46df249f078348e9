package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneypall/internal/core"
)

func TestSeededCategories(t *testing.T) {
	s := New(DefaultCategories...)
	incomes, err := s.ListCategories(context.Background(), core.Income)
	require.NoError(t, err)
	require.Len(t, incomes, 3)
	assert.Equal(t, "Freelance", incomes[0].Name)

	_, err = s.CategoryByID(context.Background(), core.Expense, incomes[0].ID)
	assert.ErrorIs(t, err, core.ErrCategoryNotFound)
}

func TestDuplicateEmailIsCaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.CreateUser(ctx, core.User{Email: "a@x.com"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, core.User{Email: "A@x.com"})
	assert.ErrorIs(t, err, core.ErrDuplicateEmail)
}

func TestCodesAreMatchedInInsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	first, _ := s.CreateCode(ctx, core.OneTimeCode{Email: "a@x.com", Code: "123456", CreatedAt: time.Now()})
	_, _ = s.CreateCode(ctx, core.OneTimeCode{Email: "a@x.com", Code: "123456", CreatedAt: time.Now()})

	c, ok, err := s.FirstCode(ctx, "a@x.com", "123456")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, c.ID)

	ok, _ = s.ConfirmCode(ctx, c.ID)
	assert.True(t, ok)
	ok, _ = s.ConfirmCode(ctx, c.ID)
	assert.False(t, ok)
}

func TestTokenIsCreatedOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, core.User{Email: "a@x.com"})

	t1, err := s.GetOrCreateToken(ctx, core.SessionToken{Key: "one", UserID: u.ID})
	require.NoError(t, err)
	t2, err := s.GetOrCreateToken(ctx, core.SessionToken{Key: "two", UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, t1.Key, t2.Key)

	_, err = s.GetOrCreateToken(ctx, core.SessionToken{Key: "three", UserID: 999})
	assert.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	s := New(DefaultCategories...)
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, core.User{Email: "a@x.com"})
	_, _ = s.GetOrCreateToken(ctx, core.SessionToken{Key: "k", UserID: u.ID})
	_, _ = s.CreateCode(ctx, core.OneTimeCode{Email: "a@x.com", Code: "123456"})
	_, err := s.CreateRecord(ctx, core.Record{UserID: u.ID, Kind: core.Income, Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 1, 1)})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, u.ID))

	_, ok, _ := s.UserByToken(ctx, "k")
	assert.False(t, ok)
	_, ok, _ = s.FirstCode(ctx, "a@x.com", "123456")
	assert.False(t, ok)
	recs, _ := s.ListRecords(ctx, u.ID, core.Income)
	assert.Empty(t, recs)
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), core.ErrUserNotFound)
}

func TestListRecordsOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, core.User{Email: "a@x.com"})
	for _, d := range []int{3, 5, 5, 1} {
		_, err := s.CreateRecord(ctx, core.Record{UserID: u.ID, Kind: core.Expense, Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 1, d)})
		require.NoError(t, err)
	}
	recs, err := s.ListRecords(ctx, u.ID, core.Expense)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, 5, recs[0].Date.Day())
	assert.Greater(t, recs[0].ID, recs[1].ID)
	assert.Equal(t, 1, recs[3].Date.Day())
}
