package request

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unmatchedEndpoint labels requests no route matched, so probing arbitrary
// paths cannot grow the label set.
const unmatchedEndpoint = "unmatched"

// Metrics are registered once per process; build one with NewMetrics and
// share it.
type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
	Responses       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credledger_endpoint_latency_seconds",
			Help:    "Latency of HTTP endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		Responses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_http_responses_total",
			Help: "HTTP responses by endpoint and status class",
		}, []string{"endpoint", "class"}),
	}
}

func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

// CountResponse buckets status into 2xx/3xx/4xx/5xx.
func (m *Metrics) CountResponse(endpoint string, status int) {
	m.Responses.WithLabelValues(endpoint, strconv.Itoa(status/100)+"xx").Inc()
}
