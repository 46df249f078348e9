package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOfUsesLocation(t *testing.T) {
	tashkent := time.FixedZone("UZT", 5*3600)
	instant := time.Date(2025, 5, 12, 21, 30, 0, 0, time.UTC)

	assert.Equal(t, NewDate(2025, 5, 12), DateOf(instant, time.UTC))
	assert.Equal(t, NewDate(2025, 5, 13), DateOf(instant, tashkent))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-05-13")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, 5, 13), d)
	assert.Equal(t, "2025-05-13", d.String())

	_, err = ParseDate("13/05/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateComparisons(t *testing.T) {
	today := NewDate(2025, 3, 1)
	weekAgo := today.AddDays(-7)
	assert.Equal(t, NewDate(2025, 2, 22), weekAgo)
	assert.True(t, today.OnOrAfter(weekAgo))
	assert.True(t, weekAgo.OnOrAfter(weekAgo))
	assert.False(t, weekAgo.AddDays(-1).OnOrAfter(weekAgo))
	assert.True(t, today.SameDay(NewDate(2025, 3, 1)))
}

func TestIsNumericCode(t *testing.T) {
	assert.True(t, IsNumericCode("123456"))
	assert.True(t, IsNumericCode("012345"))
	assert.False(t, IsNumericCode("12345"))
	assert.False(t, IsNumericCode("12345a"))
	assert.False(t, IsNumericCode("1234567"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@x.com"))
	assert.False(t, ValidEmail("a@x"))
	assert.False(t, ValidEmail("Alice <a@x.com>"))
	assert.False(t, ValidEmail(""))
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
}

func TestRecordValidate(t *testing.T) {
	good := Record{
		UserID:     1,
		Kind:       Income,
		Amount:     Money{Cents: 25000},
		CategoryID: 1,
		Currency:   "USD",
		Date:       NewDate(2025, 5, 13),
	}
	require.NoError(t, good.Validate())

	bad := good
	bad.Amount = Money{}
	bad.Currency = ""
	bad.CategoryID = 0
	err := bad.Validate()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "amount")
	assert.Contains(t, verr.Fields, "currency")
	assert.Contains(t, verr.Fields, "category")
	assert.NotContains(t, verr.Fields, "date")
}

func TestCategoryValidate(t *testing.T) {
	require.NoError(t, Category{Kind: Expense, Name: "Food"}.Validate())

	err := Category{Kind: "other", Name: " "}.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
}

func TestValidationErrorOrNil(t *testing.T) {
	assert.NoError(t, NewValidationError().OrNil())
	err := FieldError("email", "This field is required.").OrNil()
	assert.EqualError(t, err, "validation failed: email: This field is required.")
}
