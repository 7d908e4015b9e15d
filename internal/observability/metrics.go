package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	submissionsTotal   *prometheus.CounterVec
	allocationsTotal   *prometheus.CounterVec
	enrollmentsTotal   *prometheus.CounterVec
	jobsTotal          *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors exported on /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "olympiad_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "olympiad_http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"method", "route"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "olympiad_submissions_total",
			Help: "Submissions by outcome.",
		}, []string{"outcome"})

		allocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "olympiad_test_case_assignments_total",
			Help: "Test case assignments written, by allocation mode.",
		}, []string{"mode"})

		enrollmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "olympiad_enrollments_created_total",
			Help: "Enrollment rows created, by kind.",
		}, []string{"kind"})

		jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "olympiad_jobs_total",
			Help: "Background jobs by type and final status.",
		}, []string{"type", "status"})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds,
			submissionsTotal, allocationsTotal, enrollmentsTotal, jobsTotal)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// Submissions exposes the submission outcome counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// Allocations exposes the test case assignment counter.
func Allocations() *prometheus.CounterVec {
	RegisterMetrics()
	return allocationsTotal
}

// Enrollments exposes the created enrollment counter.
func Enrollments() *prometheus.CounterVec {
	RegisterMetrics()
	return enrollmentsTotal
}

// Jobs exposes the background job counter.
func Jobs() *prometheus.CounterVec {
	RegisterMetrics()
	return jobsTotal
}
