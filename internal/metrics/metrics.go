// Package metrics exposes scan results as Prometheus metrics.
//
// vrscan is a one-shot CLI, so nothing is served over HTTP. The collector
// writes its registry to a file in the text exposition format, ready for
// node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/vrscan/internal/model"
)

const metricsNamespace = "vrscan"

// Collector records check outcomes and run totals.
// It implements pipeline.CheckObserver and is safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	// ChecksTotal counts finished checks.
	// Labels: viewport, status (pass, fail, error)
	ChecksTotal *prometheus.CounterVec

	// CheckDurationSeconds measures how long a check took.
	// Labels: viewport
	CheckDurationSeconds *prometheus.HistogramVec

	// PagesTotal is the number of pages of the last run.
	PagesTotal prometheus.Gauge

	// RunDurationSeconds is the wall-clock duration of the last run.
	RunDurationSeconds prometheus.Gauge

	// LastRunTimestampSeconds is when the last run finished.
	LastRunTimestampSeconds prometheus.Gauge

	// LastRunSuccess is 1 when the last run completed without visual
	// changes, 0 otherwise.
	LastRunSuccess prometheus.Gauge
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "check",
			Name:      "total",
			Help:      "Total single-page checks by viewport and outcome",
		}, []string{"viewport", "status"}),
		CheckDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "check",
			Name:      "duration_seconds",
			Help:      "Single-page check duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"viewport"}),
		PagesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "run",
			Name:      "pages",
			Help:      "Number of pages scanned by the last run",
		}),
		RunDurationSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Duration of the last run in seconds",
		}),
		LastRunTimestampSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "run",
			Name:      "last_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "run",
			Name:      "last_success",
			Help:      "Whether the last run finished without visual changes (1) or not (0)",
		}),
	}

	c.registry.MustRegister(
		c.ChecksTotal,
		c.CheckDurationSeconds,
		c.PagesTotal,
		c.RunDurationSeconds,
		c.LastRunTimestampSeconds,
		c.LastRunSuccess,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveCheck records one finished check.
func (c *Collector) ObserveCheck(id model.CheckID, outcome model.Outcome, elapsed time.Duration) {
	c.ChecksTotal.WithLabelValues(id.Viewport, outcome.Status.String()).Inc()
	c.CheckDurationSeconds.WithLabelValues(id.Viewport).Observe(elapsed.Seconds())
}

// ObserveRun records the totals of a finished run.
func (c *Collector) ObserveRun(run *model.ScanRun) {
	c.PagesTotal.Set(float64(len(run.Pages)))
	c.RunDurationSeconds.Set(run.Duration().Seconds())
	c.LastRunTimestampSeconds.Set(float64(run.FinishedAt.Unix()))

	success := 0.0
	if run.Error == "" && !run.Summarize().HasChanges() {
		success = 1
	}
	c.LastRunSuccess.Set(success)
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
