package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reconciliation outcomes.
const (
	ReconcileUnchanged = "unchanged"
	ReconcileReplaced  = "replaced"
	ReconcileFailed    = "failed"
	ReconcileSkipped   = "skipped"
)

// MetricsSnapshot is a compact view of the counters for the health endpoint.
type MetricsSnapshot struct {
	Requests       uint64  `json:"requests"`
	AvgRequestMs   float64 `json:"avg_request_ms"`
	CacheHitRatio  float64 `json:"cache_hit_ratio"`
	Reconciles     uint64  `json:"reconciles"`
	RemoteRequests uint64  `json:"remote_requests"`
}

// MetricsService encapsulates Prometheus instrumentation for the panel.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	remoteDuration  *prometheus.HistogramVec
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	reconciles      *prometheus.CounterVec
	tokenRefreshes  *prometheus.CounterVec
	webhooks        *prometheus.CounterVec
	accessDenied    *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	reconcileCount       uint64
	remoteCount          uint64
}

// NewMetricsService registers the panel collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of panel HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of panel HTTP requests",
	}, []string{"method", "path", "status"})

	remoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "remote_request_duration_seconds",
		Help:    "Duration of calls to the remote API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "record_cache_hit_ratio",
		Help: "Ratio of fresh record cache reads to total loads",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "record_cache_hits_total",
		Help: "Record loads served from a fresh cache entry",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "record_cache_misses_total",
		Help: "Record loads that went to the remote API",
	})

	reconciles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "record_reconciliations_total",
		Help: "Background reconciliation passes by outcome",
	}, []string{"outcome"})

	tokenRefreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_refreshes_total",
		Help: "Access token refresh attempts by outcome",
	}, []string{"outcome"})

	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_dispatches_total",
		Help: "Workflow webhook notifications by outcome",
	}, []string{"outcome"})

	accessDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_access_denied_total",
		Help: "Panel requests refused by the session guard or role checks",
	}, []string{"reason", "path"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, remoteDuration, cacheHitRatio, cacheHits, cacheMisses, reconciles, tokenRefreshes, webhooks, accessDenied, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		remoteDuration:  remoteDuration,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		reconciles:      reconciles,
		tokenRefreshes:  tokenRefreshes,
		webhooks:        webhooks,
		accessDenied:    accessDenied,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records panel request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveAccessDenied counts a refused panel request. reason is
// "unauthenticated" or "forbidden".
func (m *MetricsService) ObserveAccessDenied(reason, path string) {
	if m == nil {
		return
	}
	m.accessDenied.WithLabelValues(reason, path).Inc()
}

// ObserveRemoteRequest records a call to the remote API. Status 0 means no response.
func (m *MetricsService) ObserveRemoteRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.remoteDuration.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Observe(duration.Seconds())
	atomic.AddUint64(&m.remoteCount, 1)
}

// RecordCacheOperation records a record cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveReconcile counts a reconciliation pass by outcome.
func (m *MetricsService) ObserveReconcile(outcome string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.reconcileCount, 1)
}

// ObserveTokenRefresh counts a token refresh by outcome.
func (m *MetricsService) ObserveTokenRefresh(outcome string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(outcome).Inc()
}

// ObserveWebhook counts a webhook dispatch by outcome.
func (m *MetricsService) ObserveWebhook(outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(outcome).Inc()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	snap := MetricsSnapshot{
		Requests:       requests,
		Reconciles:     atomic.LoadUint64(&m.reconcileCount),
		RemoteRequests: atomic.LoadUint64(&m.remoteCount),
	}
	if hits+misses > 0 {
		snap.CacheHitRatio = float64(hits) / float64(hits+misses)
	}
	if requests > 0 {
		snap.AvgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	return snap
}
