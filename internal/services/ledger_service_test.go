package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneypall/internal/core"
	"moneypall/internal/storage/memory"
)

var fixedNow = time.Date(2025, 5, 13, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*LedgerService, *memory.Store, core.User) {
	t.Helper()
	store := memory.New(memory.DefaultCategories...)
	u, err := store.CreateUser(context.Background(), core.User{Email: "ledger@test.uz"})
	require.NoError(t, err)
	svc := NewLedgerService(store, time.UTC, nil).WithClock(func() time.Time { return fixedNow })
	return svc, store, u
}

func firstCategory(t *testing.T, store *memory.Store, kind core.RecordKind) core.Category {
	t.Helper()
	cats, err := store.ListCategories(context.Background(), kind)
	require.NoError(t, err)
	require.NotEmpty(t, cats)
	return cats[0]
}

func TestCreateRecordDefaults(t *testing.T) {
	svc, store, u := setup(t)
	cat := firstCategory(t, store, core.Income)

	rec, err := svc.CreateRecord(context.Background(), u.ID, core.Income, RecordInput{
		Amount:   "1500,50",
		Category: "  " + itoa(cat.ID),
		Currency: "uzs",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(150050), rec.Amount.Cents)
	assert.Equal(t, "UZS", rec.Currency)
	assert.Equal(t, "2025-05-13", rec.Date.String())
	assert.Equal(t, u.ID, rec.UserID)

	listed, err := svc.ListRecords(context.Background(), u.ID, core.Income)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, rec.ID, listed[0].ID)
}

func TestCreateRecordExplicitDate(t *testing.T) {
	svc, store, u := setup(t)
	cat := firstCategory(t, store, core.Expense)

	rec, err := svc.CreateRecord(context.Background(), u.ID, core.Expense, RecordInput{
		Amount: "12.5", Category: itoa(cat.ID), Currency: "USD", Date: "2024-12-31", Description: "lunch",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", rec.Date.String())
	assert.Equal(t, "lunch", rec.Description)
}

func TestCreateRecordValidation(t *testing.T) {
	svc, store, u := setup(t)
	cat := firstCategory(t, store, core.Expense)

	tests := []struct {
		name  string
		in    RecordInput
		field string
	}{
		{"missing amount", RecordInput{Category: itoa(cat.ID), Currency: "UZS"}, "amount"},
		{"negative amount", RecordInput{Amount: "-4", Category: itoa(cat.ID), Currency: "UZS"}, "amount"},
		{"zero amount", RecordInput{Amount: "0", Category: itoa(cat.ID), Currency: "UZS"}, "amount"},
		{"missing category", RecordInput{Amount: "4", Currency: "UZS"}, "category"},
		{"bad category", RecordInput{Amount: "4", Category: "food", Currency: "UZS"}, "category"},
		{"bad date", RecordInput{Amount: "4", Category: itoa(cat.ID), Currency: "UZS", Date: "13/05/2025"}, "date"},
		{"missing currency", RecordInput{Amount: "4", Category: itoa(cat.ID)}, "currency"},
		{"long currency", RecordInput{Amount: "4", Category: itoa(cat.ID), Currency: "ABCDEFGHIJK"}, "currency"},
		{"long description", RecordInput{Amount: "4", Category: itoa(cat.ID), Currency: "UZS", Description: strings.Repeat("x", 256)}, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRecord(context.Background(), u.ID, core.Expense, tt.in)
			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestCreateRecordUnknownCategory(t *testing.T) {
	svc, store, u := setup(t)
	income := firstCategory(t, store, core.Income)

	// an income category is not valid for an expense
	_, err := svc.CreateRecord(context.Background(), u.ID, core.Expense, RecordInput{
		Amount: "4", Category: itoa(income.ID), Currency: "UZS",
	})
	assert.ErrorIs(t, err, core.ErrCategoryNotFound)

	_, err = svc.CreateRecord(context.Background(), u.ID, core.Expense, RecordInput{
		Amount: "4", Category: "9999", Currency: "UZS",
	})
	assert.ErrorIs(t, err, core.ErrCategoryNotFound)
}

func TestCreateCategory(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, core.Income, "  Dividends ", "")
	require.NoError(t, err)
	assert.Equal(t, "Dividends", c.Name)
	assert.NotZero(t, c.ID)

	cats, err := svc.ListCategories(ctx, core.Income)
	require.NoError(t, err)
	assert.Contains(t, cats, c)

	_, err = svc.CreateCategory(ctx, core.Expense, "   ", "")
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")

	_, err = svc.CreateCategory(ctx, core.Expense, strings.Repeat("n", 101), "")
	require.ErrorAs(t, err, &verr)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
