package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credledger_escrow_request_transitions_total",
		Help: "Verification requests reaching each status",
	}, []string{"status"})
	precheckRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credledger_escrow_precheck_rejections_total",
		Help: "Escrow operations rejected locally before any transaction was submitted, by error code",
	}, []string{"code"})
)

func IncTransition(status string) {
	requestTransitionsTotal.WithLabelValues(status).Inc()
}

func IncPrecheckRejection(code string) {
	precheckRejectionsTotal.WithLabelValues(code).Inc()
}
