package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeout bounds every request with a deadline. A transaction stuck on
// the store is aborted when the context expires and pgx rolls it back, so a
// timed-out claim leaves no partial credit behind.
func RequestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
