package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Format: "json", Component: ComponentAuth, Output: &buf}), &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)

	logger.Info("hello", FieldUserID, 7)
	entry := lastEntry(t, buf)
	assert.Equal(t, ComponentAuth, entry[FieldComponent])
	assert.Equal(t, float64(7), entry[FieldUserID])

	logger.WithComponent(ComponentOTP).Warn("careful")
	assert.Equal(t, ComponentOTP, lastEntry(t, buf)[FieldComponent])

	logger.Debug("dropped")
	assert.Equal(t, "careful", lastEntry(t, buf)["msg"])
}

func TestContextRoundTrip(t *testing.T) {
	logger, _ := newBufferLogger(slog.LevelInfo)
	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	fallback := FromContext(context.Background())
	require.NotNil(t, fallback)
	assert.Equal(t, "unknown", fallback.Component())
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithUser(0, "a@b.uz").
		WithError(nil).
		WithOperation(OpVerify)
	assert.NotContains(t, fields, FieldUserID)
	assert.NotContains(t, fields, FieldError)
	assert.Equal(t, "a@b.uz", fields[FieldEmail])
	assert.Len(t, fields.ToSlice(), 4)

	fields.WithError(errors.New("boom"))
	assert.Equal(t, "boom", fields[FieldError])
}

func TestStructuredLoggerHTTPEndLevel(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	sl := NewStructuredLogger(logger)
	r := httptest.NewRequest("GET", "/dashboard?x=1", nil)

	sl.LogHTTPEnd(context.Background(), r, 200, 3, "10.0.0.1")
	assert.Equal(t, "INFO", lastEntry(t, buf)["level"])

	sl.LogHTTPEnd(context.Background(), r, 404, 3, "10.0.0.1")
	assert.Equal(t, "WARN", lastEntry(t, buf)["level"])

	sl.LogHTTPEnd(context.Background(), r, 500, 3, "10.0.0.1")
	entry := lastEntry(t, buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "/dashboard", entry[FieldPath])
	assert.Equal(t, float64(500), entry[FieldStatusCode])

	sl.LogError(context.Background(), "failed", errors.New("db"), OpRead, nil)
	entry = lastEntry(t, buf)
	assert.Equal(t, "db", entry[FieldError])
	assert.Equal(t, OpRead, entry[FieldOperation])
}
