package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRuntimeRegistry returns a pull registry with the Go runtime, process and
// build collectors plus a constant info gauge labelled with service and version.
// It covers scrape-based deployments; projection metrics stay on OTLP.
func NewRuntimeRegistry(serviceName, serviceVersion string) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "agrodash_service_info",
			Help:        "Constant 1, labelled with the running service and version.",
			ConstLabels: prometheus.Labels{"service": serviceName, "version": serviceVersion},
		}, func() float64 { return 1 }),
	)
	return reg
}
