// Package metrics holds the Prometheus collectors for the collector service.
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

// Submission outcome labels. Failures use the error kind name.
const (
	OutcomeCommitted = "Committed"
)

// Phrase request results.
const (
	PhraseServed    = "served"
	PhraseExhausted = "exhausted"
	PhraseError     = "error"
)

// Metrics contains all collectors, registered on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram
	UploadBytes        prometheus.Histogram
	PhraseRequests     *prometheus.CounterVec

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers every collector plus the Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicecollect_submissions_total",
			Help: "Submission attempts by outcome kind",
		}, []string{"kind"}),
		SubmissionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicecollect_submission_duration_seconds",
			Help:    "End-to-end submission latency including normalization and storage",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}),
		UploadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicecollect_audio_upload_bytes",
			Help:    "Size of raw uploaded audio payloads",
			Buckets: prometheus.ExponentialBuckets(4096, 2, 12), // 4KB to ~8MB
		}),
		PhraseRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicecollect_phrase_requests_total",
			Help: "Next-phrase requests by result",
		}, []string{"result"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicecollect_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicecollect_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RecordSubmission counts one submission outcome.
func (m *Metrics) RecordSubmission(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(kind).Inc()
	m.SubmissionDuration.Observe(elapsed.Seconds())
}

// ObserveUpload records a raw payload size.
func (m *Metrics) ObserveUpload(size int) {
	if m == nil {
		return
	}
	m.UploadBytes.Observe(float64(size))
}

// RecordPhraseRequest counts one next-phrase lookup.
func (m *Metrics) RecordPhraseRequest(result string) {
	if m == nil {
		return
	}
	m.PhraseRequests.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
