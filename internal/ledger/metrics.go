package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK       = "ok"
	outcomeReverted = "reverted"
	outcomeError    = "error"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credledger_ledger_calls_total",
		Help: "Ledger calls and submissions by contract, method and outcome",
	}, []string{"contract", "method", "outcome"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "credledger_ledger_call_duration_seconds",
		Help:    "Round-trip latency of ledger calls and submissions",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"contract", "method"})
)

func outcomeOf(err error) string {
	if err == nil {
		return outcomeOK
	}
	if _, ok := AsRevert(err); ok {
		return outcomeReverted
	}
	return outcomeError
}
