package core

import (
	"net/mail"
	"strings"
	"time"
)

const (
	Income  RecordKind = "income"
	Expense RecordKind = "expense"
)

// CodeLength is the number of digits in a one-time login code.
const CodeLength = 6

type (
	RecordKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Email        string
		PasswordHash string
		FirstName    string
		LastName     string
		Phone        string
		DateJoined   time.Time
	}

	// OneTimeCode is a login challenge looked up by email, never by user id.
	OneTimeCode struct {
		ID        int64
		Email     string
		Code      string
		CreatedAt time.Time
		Confirmed bool
	}

	SessionToken struct {
		Key       string
		UserID    int64
		CreatedAt time.Time
	}

	Category struct {
		ID    int64
		Kind  RecordKind
		Name  string
		Image string
	}

	// Record is a single income or expense owned by one user.
	Record struct {
		ID          int64
		UserID      int64
		Kind        RecordKind
		Amount      Money
		CategoryID  int64
		Currency    string
		Description string
		Date        Date
	}
)

// IsValid reports whether k names a known record kind.
func (k RecordKind) IsValid() bool {
	return k == Income || k == Expense
}

func (k RecordKind) String() string {
	return string(k)
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether s is a bare address without display name.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s, ".")
}

// IsNumericCode reports whether code is exactly CodeLength ASCII digits.
func IsNumericCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	verr := NewValidationError()
	if !c.Kind.IsValid() {
		verr.Add("kind", "invalid category kind")
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		verr.Add("name", "This field is required.")
	} else if len(name) > 100 {
		verr.Add("name", "Ensure this field has no more than 100 characters.")
	}
	if len(c.Image) > 255 {
		verr.Add("image", "Ensure this field has no more than 255 characters.")
	}
	return verr.OrNil()
}

func (r Record) Validate() error {
	verr := NewValidationError()
	if !r.Kind.IsValid() {
		verr.Add("kind", "invalid record kind")
	}
	if r.UserID <= 0 {
		verr.Add("user", "This field is required.")
	}
	if err := r.Amount.Validate(); err != nil {
		verr.Add("amount", "A valid positive number is required.")
	}
	if r.CategoryID <= 0 {
		verr.Add("category", "This field is required.")
	}
	cur := strings.TrimSpace(r.Currency)
	if cur == "" {
		verr.Add("currency", "This field is required.")
	} else if len(cur) > 10 {
		verr.Add("currency", "Ensure this field has no more than 10 characters.")
	}
	if len(r.Description) > 255 {
		verr.Add("description", "Ensure this field has no more than 255 characters.")
	}
	if err := r.Date.Validate(); err != nil {
		verr.Add("date", err.Error())
	}
	return verr.OrNil()
}
