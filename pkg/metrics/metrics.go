// Package metrics holds the Prometheus collectors for the pipeline and the
// HTTP API. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lops"

type Metrics struct {
	registry *prometheus.Registry

	// jobs counts pipeline operations. Labels: job, status (OK, WARN, ERR)
	jobs *prometheus.CounterVec
	// jobDuration measures pipeline operations. Labels: job
	jobDuration *prometheus.HistogramVec
	// auditScore is the distribution of recorded audit scores.
	auditScore prometheus.Histogram
	// fixRounds counts rounds used per loop. Labels: state
	fixRounds *prometheus.HistogramVec
	// assists counts rewrite assist outcomes. Labels: outcome
	assists *prometheus.CounterVec
	// abEvents counts recorded A/B events. Labels: variant, event
	abEvents *prometheus.CounterVec
	// httpRequests counts API requests. Labels: method, route, code
	httpRequests *prometheus.CounterVec
	// httpDuration measures API latency. Labels: route
	httpDuration *prometheus.HistogramVec
}

// New registers every collector, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "jobs_total",
			Help:      "Pipeline operations by job name and status",
		}, []string{"job", "status"}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "job_duration_seconds",
			Help:      "Pipeline operation latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"job"}),
		auditScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "score",
			Help:      "Distribution of audit scores",
			Buckets:   []float64{0, 25, 50, 60, 70, 80, 90, 95, 100},
		}),
		fixRounds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fix",
			Name:      "rounds",
			Help:      "Rounds used by the fix loop by terminal state",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
		}, []string{"state"}),
		assists: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fix",
			Name:      "assist_total",
			Help:      "Rewrite assist outcomes per fix round",
		}, []string{"outcome"}),
		abEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ab",
			Name:      "events_total",
			Help:      "Recorded A/B events",
		}, []string{"variant", "event"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveJob(job, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(job, status).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveAudit(score int) {
	if m == nil {
		return
	}
	m.auditScore.Observe(float64(score))
}

func (m *Metrics) ObserveFix(state string, rounds int, assists []string) {
	if m == nil {
		return
	}
	m.fixRounds.WithLabelValues(state).Observe(float64(rounds))
	for _, a := range assists {
		m.assists.WithLabelValues(a).Inc()
	}
}

func (m *Metrics) ObserveEvent(variant, event string) {
	if m == nil {
		return
	}
	m.abEvents.WithLabelValues(variant, event).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
