package middleware

import (
	"context"
	"net/http"
	"strings"
)

// UserIDHeader carries the caller's opaque user id, set by the auth proxy.
const UserIDHeader = "X-User-ID"

type userIDKey struct{}

// Identity stores the caller's user id in the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserID returns the caller's id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
