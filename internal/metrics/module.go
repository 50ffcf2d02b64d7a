package metrics

import (
	"github.com/brizzai/tigoplanes/internal/reconcile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// NewRegistry creates a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Module provides the Collector, also as the link flow's Recorder.
var Module = fx.Module("metrics",
	fx.Provide(
		NewRegistry,
		NewCollector,
		func(c *Collector) reconcile.Recorder { return c },
	),
)
