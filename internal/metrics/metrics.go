// Package metrics exposes export job metrics in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperjump/tally/internal/models"
)

// DefaultNamespace prefixes every metric name when none is configured.
const DefaultNamespace = "tally"

// Collector records finished export jobs. It satisfies export.Recorder.
type Collector struct {
	registry *prometheus.Registry

	exportsTotal *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	rowsTotal    *prometheus.CounterVec
	sheetsTotal  *prometheus.CounterVec
}

// NewCollector registers the export metrics on registry (a fresh registry if nil).
// pending, when non-nil, reports the number of queued jobs on every scrape.
func NewCollector(namespace string, registry *prometheus.Registry, pending func() int) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry: registry,
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Finished export jobs by mode and final state.",
		}, []string{"mode", "state"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Time from job start to completion or failure.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"mode"}),
		rowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_rows_total",
			Help:      "Data rows written by completed exports.",
		}, []string{"mode"}),
		sheetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_sheets_total",
			Help:      "Worksheets written by completed exports.",
		}, []string{"mode"}),
	}
	registry.MustRegister(c.exportsTotal, c.duration, c.rowsTotal, c.sheetsTotal)

	if pending != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending_jobs",
			Help:      "Jobs waiting for a worker.",
		}, func() float64 { return float64(pending()) }))
	}
	return c
}

// ObserveExport records one finished job. Rows and sheets are only counted for
// completed jobs since a failed job leaves no artifact.
func (c *Collector) ObserveExport(mode models.ExportMode, state models.JobState, elapsed time.Duration, sheets, rows int) {
	m := string(mode)
	c.exportsTotal.WithLabelValues(m, string(state)).Inc()
	c.duration.WithLabelValues(m).Observe(elapsed.Seconds())
	if state == models.JobCompleted {
		c.rowsTotal.WithLabelValues(m).Add(float64(rows))
		c.sheetsTotal.WithLabelValues(m).Add(float64(sheets))
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
