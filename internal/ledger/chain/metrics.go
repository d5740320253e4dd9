package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blockHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "credledger_chain_block_height",
		Help: "Height of the last committed block",
	})
	txTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credledger_chain_transactions_total",
		Help: "Committed transactions by method",
	}, []string{"method"})
	revertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credledger_chain_reverts_total",
		Help: "Reverted transactions by method",
	}, []string{"method"})
	sinkFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credledger_chain_event_sink_failures_total",
		Help: "Committed transactions whose events could not be published",
	})
	outboxBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "credledger_chain_event_outbox_backlog",
		Help: "Committed receipts waiting for the event sink",
	})
)
