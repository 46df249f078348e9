package http

import (
	"context"
	"net/http"
	"strings"

	"moneypall/internal/core"
)

type contextKey string

const userKey contextKey = "user"

// TokenResolver maps a session token to its user.
type TokenResolver interface {
	Resolve(ctx context.Context, key string) (core.User, bool, error)
}

// tokenFromHeader accepts "Token <key>" and "Bearer <key>".
func tokenFromHeader(h string) string {
	scheme, key, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok {
		return ""
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(key)
}

// RequireToken rejects requests without a valid session token and stores the
// user in the request context.
func RequireToken(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := tokenFromHeader(r.Header.Get("Authorization"))
			if key == "" {
				Detail(http.StatusUnauthorized, "Authentication credentials were not provided.").
					Header("WWW-Authenticate", "Token").
					Write(w)
				return
			}

			user, ok, err := resolver.Resolve(r.Context(), key)
			if err != nil {
				writeError(w, r, keyDetail, err)
				return
			}
			if !ok {
				Detail(http.StatusUnauthorized, "Invalid token.").
					Header("WWW-Authenticate", "Token").
					Write(w)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user.
func UserFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userKey).(core.User)
	return u, ok
}

// currentUser is for handlers mounted behind RequireToken.
func currentUser(r *http.Request) core.User {
	u, _ := UserFromContext(r.Context())
	return u
}
