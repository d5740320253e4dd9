package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credledger_ratelimit_rejections_total",
		Help: "Ledger writes rejected by the per-caller rate limit",
	})
	storeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credledger_ratelimit_store_errors_total",
		Help: "Rate limit checks that failed open because the store errored",
	})
)

func IncRejection()  { rejections.Inc() }
func IncStoreError() { storeErrors.Inc() }
