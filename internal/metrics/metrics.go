// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "evergreen"

// Metrics groups every collector the service updates.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	RunsInFlight     prometheus.Gauge
	RecordsIngested  prometheus.Counter
	ParetoSize       prometheus.Gauge
	SelectedK        prometheus.Gauge
	EventsPublished  *prometheus.CounterVec
	HTTPRequestTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests use to avoid global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of completed pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		RunsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Pipeline runs currently executing.",
		}),
		RecordsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_ingested_total",
			Help:      "Records accepted through the API or the event bus.",
		}),
		ParetoSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pareto_front_size",
			Help:      "Pareto-optimal records in the latest completed run.",
		}),
		SelectedK: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cluster_k",
			Help:      "Cluster count used by the latest completed run.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published to the bus by outcome.",
		}, []string{"outcome"}),
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by method and status code.",
		}, []string{"method", "code"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.RunsTotal, m.RunDuration, m.RunsInFlight, m.RecordsIngested,
			m.ParetoSize, m.SelectedK, m.EventsPublished, m.HTTPRequestTotal,
		)
	}
	return m
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	if status == "completed" {
		m.RunDuration.Observe(d.Seconds())
	}
}

// ObservePublish counts one publish attempt.
func (m *Metrics) ObservePublish(err error) {
	if err != nil {
		m.EventsPublished.WithLabelValues("error").Inc()
		return
	}
	m.EventsPublished.WithLabelValues("ok").Inc()
}
