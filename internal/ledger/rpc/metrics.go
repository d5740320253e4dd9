package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var breakerOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credledger_ledger_rpc_breaker_open_total",
	Help: "Times the ledger RPC circuit breaker opened",
})
