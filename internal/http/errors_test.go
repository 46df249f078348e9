package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneypall/internal/core"
	"moneypall/internal/log"
	"moneypall/internal/otp"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.FieldError("email", "bad"), http.StatusBadRequest},
		{fmt.Errorf("verify: %w", otp.ErrCodeExpired), http.StatusBadRequest},
		{core.ErrUserNotFound, http.StatusNotFound},
		{core.ErrCategoryNotFound, http.StatusNotFound},
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{core.ErrRateLimited, http.StatusTooManyRequests},
		{ErrBodyTooLarge, http.StatusRequestEntityTooLarge},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, msg := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}

func TestWriteErrorValidationEnvelope(t *testing.T) {
	verr := core.NewValidationError()
	verr.Add("currency", "This field is required.")
	verr.Add("amount", "A valid positive number is required.")

	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodPost, "/add_income", nil), keyDetail, verr)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "A valid positive number is required.", body["detail"])
	assert.Len(t, body["errors"], 2)
}

func TestWriteErrorRateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodPost, "/login", nil), keyError, core.ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestWriteErrorLogsInternalFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Component: log.ComponentHTTP, Output: &buf})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	ctx := log.NewContext(req.Context(), logger)
	req = req.WithContext(context.WithValue(ctx, userKey, core.User{ID: 42}))

	rec := httptest.NewRecorder()
	writeError(rec, req, keyDetail, errors.New("db locked"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db locked")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "db locked", entry[log.FieldError])
	assert.Equal(t, log.OpRead, entry[log.FieldOperation])
	assert.Equal(t, "/dashboard", entry[log.FieldPath])
	assert.Equal(t, float64(42), entry[log.FieldUserID])
}
