// Package requesttime pins a single "now" per HTTP request so audit events and
// receipts produced while serving it share one timestamp.
package requesttime

import (
	"net/http"
	"time"

	"credledger/pkg/requestcontext"
)

// Middleware captures the time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
