// Package metrics exposes scan processing metrics for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attendance"

type Metrics struct {
	registry     *prometheus.Registry
	scans        *prometheus.CounterVec
	scanDuration prometheus.Histogram
	sweeps       prometheus.Counter
}

// New registers the collectors on a private registry. openWindows is sampled
// on every scrape.
func New(openWindows func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Processed scans by outcome (ok, warning, error).",
		}, []string{"outcome"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time spent classifying a scan.",
			Buckets:   prometheus.DefBuckets,
		}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_swept_total",
			Help:      "Expired windows reconciled by the sweep job.",
		}),
	}
	reg.MustRegister(m.scans, m.scanDuration, m.sweeps)

	if openWindows != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_windows",
			Help:      "Classrooms with a marking window in memory.",
		}, func() float64 { return float64(openWindows()) }))
	}

	return m
}

func (m *Metrics) ObserveScan(outcome string, elapsed time.Duration) {
	m.scans.WithLabelValues(outcome).Inc()
	m.scanDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) AddSwept(n int) {
	m.sweeps.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
