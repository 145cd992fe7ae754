// Package monitoring exposes the prediction service metrics in Prometheus
// format.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "winequality"

// Prediction outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// CacheStats is implemented by ml.CachedRegressor.
type CacheStats interface {
	Hits() uint64
	Misses() uint64
	Len() int
}

// Metrics owns a private registry so several servers can coexist in one
// process (tests).
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	predictions *prometheus.CounterVec
	scores      prometheus.Histogram
	startTime   time.Time
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by transport and outcome.",
		}, []string{"transport", "outcome"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "predicted_quality",
			Help:      "Rounded wine quality scores returned to clients.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		startTime: time.Now(),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.latency,
		m.predictions,
		m.scores,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the service started.",
		}, func() float64 { return m.Uptime().Seconds() }),
	)
	return m
}

// RegisterCache exports the hit, miss and size counters of a prediction cache.
func (m *Metrics) RegisterCache(stats CacheStats) error {
	cacheCollectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_hits_total",
			Help:      "Predictions served from the cache.",
		}, func() float64 { return float64(stats.Hits()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_misses_total",
			Help:      "Predictions computed by the model.",
		}, func() float64 { return float64(stats.Misses()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prediction_cache_entries",
			Help:      "Entries currently held by the cache.",
		}, func() float64 { return float64(stats.Len()) }),
	}
	for _, c := range cacheCollectors {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordPrediction counts a successful prediction and its rounded score.
func (m *Metrics) RecordPrediction(transport string, quality int) {
	m.predictions.WithLabelValues(transport, OutcomeOK).Inc()
	m.scores.Observe(float64(quality))
}

// RecordFailure counts a prediction that did not produce a score.
func (m *Metrics) RecordFailure(transport, outcome string) {
	m.predictions.WithLabelValues(transport, outcome).Inc()
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
