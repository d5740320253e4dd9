package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credledger/internal/platform/health"
	"credledger/internal/platform/metrics"
	"credledger/pkg/platform/middleware/request"
	"credledger/pkg/platform/middleware/requesttime"
)

// maxBodyBytes bounds request bodies; every DTO is a handful of hex fields.
const maxBodyBytes = 64 << 10

// Registrar is implemented by each domain handler.
type Registrar interface {
	Register(r chi.Router, requireCaller func(http.Handler) http.Handler)
}

// Config wires the gateway's cross-cutting pieces.
type Config struct {
	Logger *slog.Logger
	// RequireCaller authenticates mutating routes and binds the caller.
	RequireCaller func(http.Handler) http.Handler
	// WriteLimiter, when set, runs after RequireCaller on every mutating route.
	WriteLimiter func(http.Handler) http.Handler
	Metrics      *request.Metrics
	Health       *health.Handler
	Timeout      time.Duration
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg Config, handlers ...Registrar) http.Handler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(cfg.Logger))
	r.Use(requesttime.Middleware)
	r.Use(request.LatencyMiddleware(cfg.Metrics, routePattern))
	r.Use(request.Timeout(timeout))
	r.Use(request.BodyLimit(maxBodyBytes))
	r.Use(request.ContentTypeJSON)

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	r.Handle("/metrics", metrics.Handler())

	requireCaller := cfg.RequireCaller
	if cfg.WriteLimiter != nil {
		auth, limit := cfg.RequireCaller, cfg.WriteLimiter
		requireCaller = func(next http.Handler) http.Handler {
			return auth(limit(next))
		}
	}
	for _, h := range handlers {
		h.Register(r, requireCaller)
	}
	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
