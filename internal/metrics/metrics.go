// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aqi"

// Upload outcomes used as the "outcome" label.
const (
	OutcomeSuccess      = "success"
	OutcomeParseError   = "parse_error"
	OutcomeEmpty        = "empty"
	OutcomeStorageError = "storage_error"
	OutcomeInvalid      = "invalid"
)

type Metrics struct {
	// Labels: source (http, mqtt, api), outcome.
	UploadsTotal *prometheus.CounterVec
	// Labels: source.
	ReadingsParsedTotal *prometheus.CounterVec
	// Labels: source.
	ProcessDuration *prometheus.HistogramVec

	UploadsPrunedTotal prometheus.Counter

	// Labels: method, route, status.
	HTTPRequestsTotal *prometheus.CounterVec
	// Labels: method, route.
	HTTPRequestDuration *prometheus.HistogramVec

	MQTTMessagesTotal *prometheus.CounterVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "uploads",
			Name:      "total",
			Help:      "Processed sensor logs by source and outcome.",
		}, []string{"source", "outcome"}),
		ReadingsParsedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "uploads",
			Name:      "readings_parsed_total",
			Help:      "Readings extracted from successfully parsed logs.",
		}, []string{"source"}),
		ProcessDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "uploads",
			Name:      "process_duration_seconds",
			Help:      "Time spent parsing, charting and storing one log.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		UploadsPrunedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "uploads",
			Name:      "pruned_total",
			Help:      "Expired uploads removed from the store.",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		MQTTMessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "messages_total",
			Help:      "MQTT log messages received by result (ok, rejected, failed).",
		}, []string{"result"}),
	}
}

// NewNop returns collectors registered on a throwaway registry, for callers
// that do not export metrics (CLI, tests).
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
