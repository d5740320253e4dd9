package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var deniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "credledger_authz_denied_total",
	Help: "Mutations rejected by the ownership pre-check before reaching the ledger",
}, []string{"contract"})
