package probe

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/caas-team/lookout/pkg/db"
)

// Metrics contains the prometheus metrics of all probe workers
type Metrics struct {
	rtt       *prometheus.GaugeVec
	count     *prometheus.CounterVec
	histogram *prometheus.HistogramVec
	dropped   prometheus.Counter
}

// NewMetrics initializes the probe metrics
func NewMetrics() *Metrics {
	labels := []string{"target", "address"}
	return &Metrics{
		rtt: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lookout_probe_rtt_seconds",
				Help: "Round trip time of the last successful probe",
			},
			labels,
		),
		count: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookout_probe_total",
				Help: "Count of probes by status",
			},
			append(labels, "status"),
		),
		histogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lookout_probe_duration_seconds",
				Help:    "Duration of probes in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			labels,
		),
		dropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lookout_probe_results_dropped_total",
				Help: "Count of probe results dropped because the result channel was full",
			},
		),
	}
}

// Collectors returns all metric collectors of the probe workers
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rtt,
		m.count,
		m.histogram,
		m.dropped,
	}
}

func (m *Metrics) observe(target db.Target, res db.ProbeResult) {
	id, addr := target.ID.String(), target.Address.String()
	m.count.WithLabelValues(id, addr, string(res.Status)).Inc()
	m.histogram.WithLabelValues(id, addr).Observe(res.Elapsed.Seconds())
	if res.Status == db.StatusOk {
		m.rtt.WithLabelValues(id, addr).Set(res.RTT.Seconds())
	}
}

// Remove deletes all metrics of the target
func (m *Metrics) Remove(id db.TargetID) {
	labels := prometheus.Labels{"target": id.String()}
	m.rtt.DeletePartialMatch(labels)
	m.count.DeletePartialMatch(labels)
	m.histogram.DeletePartialMatch(labels)
}
