package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONResponseBuilderFields(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Field("msg", "ok").
		Field("token", "abc").
		Header("X-Test", "1").
		Write(rec)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.JSONEq(t, `{"msg":"ok","token":"abc"}`, rec.Body.String())
}

func TestJSONResponseBuilderPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Field("ignored", true).Payload([]int{1, 2}).Write(rec)
	assert.JSONEq(t, `[1,2]`, rec.Body.String())
}

func TestNoContentHasNoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Detail(http.StatusNoContent, "gone").Write(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestMethodNotAllowedError(t *testing.T) {
	rec := httptest.NewRecorder()
	MethodNotAllowedError("GET, POST").Write(rec)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
}
