package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"credledger/internal/ratelimit/metrics"
	"credledger/internal/ratelimit/models"
	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

// Store is a sliding-window counter.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Middleware caps how many ledger writes one caller may submit per window.
type Middleware struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
}

func New(store Store, limit int, window time.Duration, logger *slog.Logger) *Middleware {
	return &Middleware{store: store, limit: limit, window: window, logger: logger}
}

// PerCaller limits by the authenticated caller, so it must run after the
// auth middleware. Requests without a caller pass through. Store failures
// fail open.
func (m *Middleware) PerCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, ok := requestcontext.Caller(ctx)
		if !ok || m.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.store.Allow(ctx, "caller:"+caller.Key(), m.limit, m.window)
		if err != nil {
			metrics.IncStoreError()
			m.logger.ErrorContext(ctx, "failed to check caller rate limit",
				"error", err,
				"caller", caller.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			metrics.IncRejection()
			m.logger.WarnContext(ctx, "caller rate limit exceeded",
				"caller", caller.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			writeRateLimitExceeded(w, result)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many ledger writes from this account. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
