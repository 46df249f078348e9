// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON responses so every handler
// writes the same envelope shapes.

package http

import (
	"encoding/json"
	"net/http"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	fields     map[string]any
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		fields:     make(map[string]any),
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Field adds a top-level key to an object body.
func (b *JSONResponseBuilder) Field(key string, value any) *JSONResponseBuilder {
	b.fields[key] = value
	return b
}

// Payload replaces the body with v. Fields are ignored once a payload is set.
func (b *JSONResponseBuilder) Payload(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response. 204 responses carry no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	var body any = b.fields
	if b.payload != nil {
		body = b.payload
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// Message builds {key: msg} with the given status.
func Message(status int, key, msg string) *JSONResponseBuilder {
	return NewJSONResponse().Status(status).Field(key, msg)
}

// Detail builds {"detail": msg}.
func Detail(status int, msg string) *JSONResponseBuilder {
	return Message(status, "detail", msg)
}

// MethodNotAllowedError creates a 405 response listing the allowed methods.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return Detail(http.StatusMethodNotAllowed, "Method not allowed.").
		Header("Allow", allowedMethods)
}
