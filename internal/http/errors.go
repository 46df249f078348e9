package http

import (
	"errors"
	"net/http"
	"sort"

	"moneypall/internal/core"
	"moneypall/internal/log"
	"moneypall/internal/otp"
)

// Envelope keys. /login reports failures under "error", everything else
// under "detail".
const (
	keyError  = "error"
	keyDetail = "detail"
)

const msgInternal = "Internal server error."

// statusFor maps a service error to an HTTP status and a client-safe message.
// Unknown errors map to 500 and the caller logs them.
func statusFor(err error) (int, string) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, firstMessage(verr)
	case errors.Is(err, otp.ErrCodeNotFound):
		return http.StatusBadRequest, "Invalid or unknown OTP."
	case errors.Is(err, otp.ErrCodeExpired):
		return http.StatusBadRequest, "OTP has expired."
	case errors.Is(err, otp.ErrCodeUsed):
		return http.StatusBadRequest, "OTP has already been used."
	case errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound, "User not found."
	case errors.Is(err, core.ErrCategoryNotFound):
		return http.StatusNotFound, "Category not found."
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, "Authentication credentials were not provided."
	case errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests. Please try again later."
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "Request body too large."
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// firstMessage picks the message of the alphabetically first field.
func firstMessage(verr *core.ValidationError) string {
	keys := make([]string, 0, len(verr.Fields))
	for k := range verr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if msgs := verr.Fields[k]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	return "Invalid input."
}

// writeError writes err under key. Validation errors also carry the per-field
// messages under "errors".
func writeError(w http.ResponseWriter, r *http.Request, key string, err error) {
	status, msg := statusFor(err)
	resp := Message(status, key, msg)

	var verr *core.ValidationError
	if errors.As(err, &verr) {
		resp.Field("errors", verr.Fields)
	}
	if status == http.StatusTooManyRequests {
		resp.Header("Retry-After", "60")
	}
	if status >= http.StatusInternalServerError {
		fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent())
		if u, ok := UserFromContext(r.Context()); ok {
			fields.WithUser(u.ID, "")
		}
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, operationFor(r.Method), fields)
	}
	resp.Write(w)
}

func operationFor(method string) string {
	switch method {
	case http.MethodGet:
		return log.OpRead
	case http.MethodPost:
		return log.OpCreate
	case http.MethodPut, http.MethodPatch:
		return log.OpUpdate
	case http.MethodDelete:
		return log.OpDelete
	default:
		return method
	}
}

// badBody reports an unreadable request body.
func badBody(w http.ResponseWriter, r *http.Request, key string, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		writeError(w, r, key, err)
		return
	}
	Message(http.StatusBadRequest, key, "Invalid request body.").Write(w)
}
