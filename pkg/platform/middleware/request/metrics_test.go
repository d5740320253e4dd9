package request

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// unregistered keeps the test off the default registry NewMetrics uses.
func unregistered() *Metrics {
	return &Metrics{
		EndpointLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "latency"}, []string{"endpoint"}),
		Responses:       prometheus.NewCounterVec(prometheus.CounterOpts{Name: "responses"}, []string{"endpoint", "class"}),
	}
}

func TestLatencyMiddleware(t *testing.T) {
	m := unregistered()
	status := http.StatusOK
	pattern := ""
	h := LatencyMiddleware(m, func(*http.Request) string { return pattern })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(status) }))

	pattern = "/v1/escrow/requests/{id}"
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/escrow/requests/4", nil))
	status = http.StatusNotFound
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/escrow/requests/9", nil))

	pattern = ""
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin.php", nil))

	endpoint := "GET /v1/escrow/requests/{id}"
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Responses.WithLabelValues(endpoint, "2xx")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Responses.WithLabelValues(endpoint, "4xx")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Responses.WithLabelValues(unmatchedEndpoint, "4xx")))
	assert.Equal(t, 2, promtest.CollectAndCount(m.EndpointLatency))
}

func TestLatencyMiddlewareWithoutMetrics(t *testing.T) {
	called := false
	h := LatencyMiddleware(nil, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}
