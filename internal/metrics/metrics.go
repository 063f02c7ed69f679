// Package metrics exposes Prometheus collectors for the siteforge service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsTotal                  *prometheus.CounterVec
	sitesGeneratedTotal        prometheus.Counter
	stageDurationSeconds       *prometheus.HistogramVec
	domainChecksTotal          *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeConsumers            prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteforge_jobs_total",
				Help: "Total number of jobs finished, labeled by terminal status.",
			},
			[]string{"status"},
		)

		sitesGeneratedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "siteforge_sites_generated_total",
				Help: "Total number of sites successfully generated.",
			},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "siteforge_stage_duration_seconds",
				Help:    "Histogram of pipeline stage durations, labeled by stage.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"stage"},
		)

		domainChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteforge_domain_checks_total",
				Help: "Total domain availability lookups, labeled by result.",
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeConsumers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "siteforge_active_consumers",
				Help: "Number of consumers currently processing a job.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given terminal status.
func ObserveJob(status string) {
	if jobsTotal == nil {
		return
	}
	jobsTotal.WithLabelValues(status).Inc()
}

// AddSitesGenerated adds to the generated-sites counter.
func AddSitesGenerated(n int) {
	if sitesGeneratedTotal == nil || n <= 0 {
		return
	}
	sitesGeneratedTotal.Add(float64(n))
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, duration time.Duration) {
	if stageDurationSeconds == nil {
		return
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveDomainCheck increments the lookup counter for the given result.
func ObserveDomainCheck(result string) {
	if domainChecksTotal == nil {
		return
	}
	domainChecksTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveConsumers increments the active consumers gauge.
func IncActiveConsumers() {
	if activeConsumers == nil {
		return
	}
	activeConsumers.Inc()
}

// DecActiveConsumers decrements the active consumers gauge.
func DecActiveConsumers() {
	if activeConsumers == nil {
		return
	}
	activeConsumers.Dec()
}
