// Package metrics exposes the process-wide Prometheus registry.
package metrics

import (
	"net/http"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "credledger_build_info",
	Help: "Build and runtime information; always 1",
}, []string{"component", "version", "go_version"})

// RecordBuildInfo marks the running component and version.
func RecordBuildInfo(component, version string) {
	buildInfo.WithLabelValues(component, version, runtime.Version()).Set(1)
}

// Handler serves the default registry, where every promauto metric lands.
func Handler() http.Handler {
	return promhttp.Handler()
}
