// Package metrics exports Prometheus counters/histograms for the turn
// pipeline. Grounded on ai/metrics/prometheus.go's PrometheusExporter:
// same namespace/subsystem/registry shape, same histogram-bucket
// defaults, re-themed from chat/tool/agent metrics to turn/provider/
// cache metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter holds every metric this module emits.
type Exporter struct {
	registry *prometheus.Registry

	turnLatency  *prometheus.HistogramVec
	turnRequests *prometheus.CounterVec

	providerAttempts *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	ragRetrievals *prometheus.CounterVec
}

// Config configures the exporter.
type Config struct {
	// Registry to use (a new one is created when nil).
	Registry *prometheus.Registry
	// LatencyBuckets for the histograms, in seconds.
	LatencyBuckets []float64
}

func DefaultConfig() Config {
	return Config{LatencyBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20}}
}

// New creates and registers every metric against cfg.Registry (or a
// fresh one).
func New(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.turnLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "conversagent",
		Subsystem: "turn",
		Name:      "latency_seconds",
		Help:      "End-to-end turn latency from batch receipt to reply dispatch.",
		Buckets:   cfg.LatencyBuckets,
	}, []string{"status"})

	e.turnRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conversagent",
		Subsystem: "turn",
		Name:      "requests_total",
		Help:      "Total turns handled, by outcome.",
	}, []string{"status"})

	e.providerAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conversagent",
		Subsystem: "provider",
		Name:      "attempts_total",
		Help:      "Generation attempts per provider/model, by outcome.",
	}, []string{"provider", "model", "status"})

	e.providerLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "conversagent",
		Subsystem: "provider",
		Name:      "latency_seconds",
		Help:      "Generation latency per provider/model.",
		Buckets:   cfg.LatencyBuckets,
	}, []string{"provider", "model"})

	e.cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conversagent",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Cache hits, by cache name.",
	}, []string{"cache"})

	e.cacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conversagent",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Cache misses, by cache name.",
	}, []string{"cache"})

	e.ragRetrievals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conversagent",
		Subsystem: "retrieval",
		Name:      "fetches_total",
		Help:      "RAG source fetches, by origin.",
	}, []string{"origin"})

	registry.MustRegister(
		e.turnLatency, e.turnRequests,
		e.providerAttempts, e.providerLatency,
		e.cacheHits, e.cacheMisses,
		e.ragRetrievals,
	)

	return e
}

// ObserveTurn records one completed turn's latency and outcome.
func (e *Exporter) ObserveTurn(status string, seconds float64) {
	e.turnLatency.WithLabelValues(status).Observe(seconds)
	e.turnRequests.WithLabelValues(status).Inc()
}

// ObserveProviderAttempt records one generation attempt against a
// specific provider/model.
func (e *Exporter) ObserveProviderAttempt(provider, model, status string, seconds float64) {
	e.providerAttempts.WithLabelValues(provider, model, status).Inc()
	e.providerLatency.WithLabelValues(provider, model).Observe(seconds)
}

// ObserveCache records a hit or miss against a named cache.
func (e *Exporter) ObserveCache(cacheName string, hit bool) {
	if hit {
		e.cacheHits.WithLabelValues(cacheName).Inc()
		return
	}
	e.cacheMisses.WithLabelValues(cacheName).Inc()
}

// ObserveRetrieval records one RAG source fetch by origin.
func (e *Exporter) ObserveRetrieval(origin string) {
	e.ragRetrievals.WithLabelValues(origin).Inc()
}

// Handler returns the promhttp handler to mount at /metrics.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
