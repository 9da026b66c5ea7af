// Package metrics exposes scheduler and report generation counters to
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alextanhongpin/podreport/pkg/job"
	"github.com/alextanhongpin/podreport/pkg/report"
)

const namespace = "podreport"

var (
	_ job.Recorder    = (*Metrics)(nil)
	_ report.Observer = (*Metrics)(nil)
)

type Metrics struct {
	registry      *prometheus.Registry
	jobFires      *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	armedJobs     prometheus.Gauge
	reports       *prometheus.CounterVec
	reportSeconds *prometheus.HistogramVec
}

// New registers every collector on its own registry, along with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobFires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "fires_total",
			Help:      "Scheduled job fires by job type and outcome.",
		}, []string{"type", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "fire_duration_seconds",
			Help:      "Time spent running a scheduled job.",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"type"}),
		armedJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "armed_jobs",
			Help:      "Jobs that currently hold a timer.",
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "generated_total",
			Help:      "Report generation attempts by trigger and result.",
		}, []string{"generated_by", "result"}),
		reportSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "generation_duration_seconds",
			Help:      "Time spent generating a report.",
			Buckets:   prometheus.ExponentialBuckets(.25, 2, 10),
		}, []string{"generated_by"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.jobFires,
		m.jobDuration,
		m.armedJobs,
		m.reports,
		m.reportSeconds,
	)

	return m
}

func (m *Metrics) ObserveFire(kind job.Type, outcome job.Outcome, elapsed time.Duration) {
	m.jobFires.WithLabelValues(kind.String(), string(outcome)).Inc()
	m.jobDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) SetArmed(n int) {
	m.armedJobs.Set(float64(n))
}

func (m *Metrics) ObserveReport(generatedBy report.GeneratedBy, ok bool, elapsed time.Duration) {
	result := "success"
	if !ok {
		result = "failure"
	}

	m.reports.WithLabelValues(string(generatedBy), result).Inc()
	m.reportSeconds.WithLabelValues(string(generatedBy)).Observe(elapsed.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
