package shm

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors updated by Open, Release and the
// bounds checks. A nil *Metrics records nothing.
type Metrics struct {
	Opens            *prometheus.CounterVec
	Releases         prometheus.Counter
	LiveHandles      prometheus.Gauge
	BoundsViolations *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Opens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shmregion",
			Name:      "opens_total",
			Help:      "Open calls by result (created, attached, absent, failed).",
		}, []string{"result"}),
		Releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmregion",
			Name:      "releases_total",
			Help:      "Released region handles.",
		}),
		LiveHandles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shmregion",
			Name:      "live_handles",
			Help:      "Region handles currently attached in this process.",
		}),
		BoundsViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shmregion",
			Name:      "bounds_violations_total",
			Help:      "Out of bounds byte accesses on a present region, by operation.",
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.Opens, m.Releases, m.LiveHandles, m.BoundsViolations)
	}
	return m
}

func (m *Metrics) opened(result string) {
	if m == nil {
		return
	}
	m.Opens.WithLabelValues(result).Inc()
	if result == resultCreated || result == resultAttached {
		m.LiveHandles.Inc()
	}
}

func (m *Metrics) released() {
	if m == nil {
		return
	}
	m.Releases.Inc()
	m.LiveHandles.Dec()
}

func (m *Metrics) boundsViolation(op string) {
	if m == nil {
		return
	}
	m.BoundsViolations.WithLabelValues(op).Inc()
}
