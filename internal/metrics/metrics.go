// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/compintel/internal/model"
)

// Collector holds all Prometheus metrics for the engine. A nil *Collector
// is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Pipeline metrics
	Outcomes          *prometheus.CounterVec
	EvaluateDuration  prometheus.Histogram
	SynthesisDuration *prometheus.HistogramVec

	// Adapter metrics
	AdapterFetches  *prometheus.CounterVec
	AdapterDuration *prometheus.HistogramVec
	EvidenceItems   *prometheus.CounterVec

	// Grounding metrics
	Claims     *prometheus.CounterVec
	DroppedIDs prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of evaluations by status and reason",
			},
			[]string{"category", "status", "reason"},
		),
		EvaluateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "End-to-end evaluation duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 15, 20, 30},
			},
		),
		SynthesisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "synthesis_duration_seconds",
				Help:      "Language model call duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 20},
			},
			[]string{"provider", "result"},
		),
		AdapterFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "adapter_fetches_total",
				Help:      "Total number of evidence adapter fetches by result",
			},
			[]string{"provider", "result"},
		),
		AdapterDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "adapter_fetch_duration_seconds",
				Help:      "Evidence adapter fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		EvidenceItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evidence_items_total",
				Help:      "Total number of evidence items collected",
			},
			[]string{"provider"},
		),
		Claims: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "claims_total",
				Help:      "Total number of normalized claims by support",
			},
			[]string{"support"},
		),
		DroppedIDs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_evidence_ids_total",
				Help:      "Total number of cited evidence ids absent from the pack",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.Outcomes,
		c.EvaluateDuration,
		c.SynthesisDuration,
		c.AdapterFetches,
		c.AdapterDuration,
		c.EvidenceItems,
		c.Claims,
		c.DroppedIDs,
		c.HTTPRequests,
		c.HTTPDuration,
	)

	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordOutcome counts one finished evaluation. Reasons carrying detail
// after a separator are reduced to their code.
func (c *Collector) RecordOutcome(category string, outcome *model.Outcome, elapsed time.Duration) {
	if c == nil || outcome == nil {
		return
	}
	c.Outcomes.WithLabelValues(category, string(outcome.Status), ReasonCode(outcome.Reason)).Inc()
	c.EvaluateDuration.Observe(elapsed.Seconds())
}

// RecordAdapter counts one adapter run
func (c *Collector) RecordAdapter(kind model.ProviderKind, ok bool, items int, elapsed time.Duration) {
	if c == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "unavailable"
	}
	c.AdapterFetches.WithLabelValues(string(kind), result).Inc()
	c.AdapterDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	if items > 0 {
		c.EvidenceItems.WithLabelValues(string(kind)).Add(float64(items))
	}
}

// RecordSynthesis observes one model call
func (c *Collector) RecordSynthesis(provider string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.SynthesisDuration.WithLabelValues(provider, result).Observe(elapsed.Seconds())
}

// RecordClaims counts normalized claims by support
func (c *Collector) RecordClaims(claims []model.Claim, droppedIDs int) {
	if c == nil {
		return
	}
	for _, claim := range claims {
		c.Claims.WithLabelValues(string(claim.Support)).Inc()
	}
	if droppedIDs > 0 {
		c.DroppedIDs.Add(float64(droppedIDs))
	}
}

// RecordHTTP counts one served request
func (c *Collector) RecordHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ReasonCode strips the detail from reasons such as
// "unsupported_category:foo" or "synthesis_failed: dial tcp"
func ReasonCode(reason string) string {
	if i := strings.IndexByte(reason, ':'); i >= 0 {
		return reason[:i]
	}
	return reason
}
