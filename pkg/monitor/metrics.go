package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	running   prometheus.Gauge
	events    *prometheus.CounterVec
	resyncs   *prometheus.CounterVec
	discarded prometheus.Counter
}

func newMetrics() metrics {
	return metrics{
		running: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lookout_workers_running",
				Help: "Number of running probe workers",
			},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookout_store_events_total",
				Help: "Count of store events handled by the manager",
			},
			[]string{"kind"},
		),
		resyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookout_resyncs_total",
				Help: "Count of reconciliations against the full store",
			},
			[]string{"reason"},
		),
		discarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lookout_results_discarded_total",
				Help: "Count of probe results discarded because the target no longer exists",
			},
		),
	}
}

func (m metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.running, m.events, m.resyncs, m.discarded}
}
