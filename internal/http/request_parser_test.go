package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		key         string
		want        string
		wantJSON    bool
	}{
		{"json string", "application/json", `{"email":" a@b.uz "}`, "email", "a@b.uz", true},
		{"json number", "application/json", `{"amount":12.5}`, "amount", "12.5", true},
		{"json integer", "", `{"category":3}`, "category", "3", true},
		{"json missing key", "application/json", `{"email":"a@b.uz"}`, "code", "", true},
		{"form", "application/x-www-form-urlencoded", "email=a%40b.uz&code=123456", "code", "123456", false},
		{"control characters", "application/x-www-form-urlencoded", "description=caf%00e", "description", "cafe", false},
		{"empty body", "", "", "email", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.contentType, tt.body)
			require.NoError(t, p.Parse())
			assert.Equal(t, tt.want, p.Get(tt.key))
			assert.Equal(t, tt.wantJSON, p.IsJSON())
		})
	}
}

func TestRequestBodyParserInvalidJSON(t *testing.T) {
	p := newParser(t, "application/json", `{"email":`)
	assert.Error(t, p.Parse())
	// the error sticks
	assert.Error(t, p.Parse())
	assert.Equal(t, "", p.Get("email"))
}

func TestRequestBodyParserTooLarge(t *testing.T) {
	p := newParser(t, "application/json", `{"description":"`+strings.Repeat("x", MaxBodyBytes)+`"}`)
	assert.ErrorIs(t, p.Parse(), ErrBodyTooLarge)
}

func TestRequestBodyParserOptional(t *testing.T) {
	p := newParser(t, "application/json", `{"first_name":"","phone":"+998"}`)
	require.NoError(t, p.Parse())

	require.NotNil(t, p.Optional("first_name"))
	assert.Equal(t, "", *p.Optional("first_name"))
	assert.Equal(t, "+998", *p.Optional("phone"))
	assert.Nil(t, p.Optional("last_name"))

	form := newParser(t, "application/x-www-form-urlencoded", "last_name=Karimov")
	require.NoError(t, form.Parse())
	assert.True(t, form.Has("last_name"))
	assert.False(t, form.Has("phone"))
}

func TestRequestBodyParserGetRawKeepsWhitespace(t *testing.T) {
	p := newParser(t, "application/json", `{"password":"  spaced  "}`)
	require.NoError(t, p.Parse())
	assert.Equal(t, "  spaced  ", p.GetRaw("password"))
	assert.Equal(t, "spaced", p.Get("password"))
}
