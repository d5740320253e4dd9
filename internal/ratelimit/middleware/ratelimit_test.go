package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credledger/internal/ratelimit/models"
	"credledger/internal/ratelimit/store/bucket"
	"credledger/pkg/requestcontext"
	"credledger/pkg/testutil"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, withCaller bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/certificates", nil)
	if withCaller {
		req = req.WithContext(requestcontext.WithCaller(req.Context(), testutil.TestAddresses.Issuer))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPerCaller(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("rejects once the window is full", func(t *testing.T) {
		h := New(bucket.NewInMemoryBucketStore(), 2, time.Minute, logger).PerCaller(okHandler())

		for range 2 {
			rec := serve(h, true)
			require.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		}

		rec := serve(h, true)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))

		body := testutil.DecodeBody[models.RateLimitExceededResponse](t, rec)
		assert.Equal(t, "rate_limit_exceeded", body.Error)
		assert.Positive(t, body.RetryAfter)
	})

	t.Run("anonymous requests pass through", func(t *testing.T) {
		h := New(bucket.NewInMemoryBucketStore(), 1, time.Minute, logger).PerCaller(okHandler())
		for range 3 {
			assert.Equal(t, http.StatusNoContent, serve(h, false).Code)
		}
	})

	t.Run("zero limit disables the check", func(t *testing.T) {
		h := New(bucket.NewInMemoryBucketStore(), 0, time.Minute, logger).PerCaller(okHandler())
		assert.Equal(t, http.StatusNoContent, serve(h, true).Code)
	})

	t.Run("store errors fail open", func(t *testing.T) {
		h := New(failingStore{}, 1, time.Minute, logger).PerCaller(okHandler())
		rec := serve(h, true)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	})
}
