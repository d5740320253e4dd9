package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var revokeRacesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "credledger_certificate_revoke_races_total",
	Help: "Revocations rejected in the write phase after the index was resolved, by error code",
}, []string{"code"})

func IncRevokeRace(code string) {
	revokeRacesTotal.WithLabelValues(code).Inc()
}
