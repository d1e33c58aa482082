// Package metrics exposes Prometheus collectors for ingestion runs and the read API.
package metrics

import (
	"net/http"
	"time"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "offerhunt"

// Listing outcomes.
const (
	OutcomeAccepted        = "accepted"
	OutcomeRejectedPrice   = "rejected_price"
	OutcomeRejectedQuality = "rejected_quality"
	OutcomeRejectedKeyword = "rejected_keyword"
	OutcomeStoreError      = "store_error"
)

// Source results.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

type Metrics struct {
	runsTotal           *prometheus.CounterVec
	runDuration         *prometheus.HistogramVec
	sourceResults       *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	listingsTotal       *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of ingestion runs.",
			},
			[]string{"trigger"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Histogram of ingestion run durations.",
				Buckets:   []float64{1, 5, 10, 30, 60, 120},
			},
			[]string{"trigger"},
		),
		sourceResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_results_total",
				Help:      "Per-source run results.",
			},
			[]string{"source", "result", "stage"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Histogram of page fetch durations.",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"source", "strategy"},
		),
		listingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listings_total",
				Help:      "Extracted listings by outcome.",
			},
			[]string{"source", "outcome"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "endpoint", "status"},
		),
	}

	reg.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.sourceResults,
		m.fetchDuration,
		m.listingsTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// RecordRun records a finished run and the result of each of its sources.
func (m *Metrics) RecordRun(report *models.RunReport) {
	trigger := string(report.Request.Trigger)
	m.runsTotal.WithLabelValues(trigger).Inc()
	m.runDuration.WithLabelValues(trigger).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	for _, s := range report.Sources {
		result := ResultOK
		switch {
		case s.Skipped:
			result = ResultSkipped
		case s.Err != nil:
			result = ResultFailed
		}
		m.sourceResults.WithLabelValues(s.Source, result, string(s.Stage)).Inc()
	}
}

// RecordFetch records how long one fetch took.
func (m *Metrics) RecordFetch(source string, strategy models.FetchStrategy, duration time.Duration) {
	m.fetchDuration.WithLabelValues(source, string(strategy)).Observe(duration.Seconds())
}

// RecordListing counts one listing outcome.
func (m *Metrics) RecordListing(source, outcome string) {
	m.listingsTotal.WithLabelValues(source, outcome).Inc()
}

// RecordRequest records metrics for an HTTP request.
func (m *Metrics) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	m.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// classifyStatus maps an HTTP status code to its class.
func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	default:
		return "unknown"
	}
}

// Handler returns the exposition handler for the collectors in gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
