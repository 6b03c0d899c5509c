package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	traceviewRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traceview_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	traceviewRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "traceview_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	traceviewLedgerMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traceview_ledger_mutations_total",
		Help: "Total successful ledger mutations by canister method.",
	}, []string{"method"})

	traceviewCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "traceview_cache_entries",
		Help: "Number of live read-cache entries.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		traceviewRequestsTotal.WithLabelValues(method, path, status).Inc()
		traceviewRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordLedgerMutation records a successful write to the ledger canister.
func RecordLedgerMutation(method string) {
	traceviewLedgerMutationsTotal.WithLabelValues(method).Inc()
}

// SetCacheEntriesGauge publishes the current read-cache size.
func SetCacheEntriesGauge(count int) {
	traceviewCacheEntries.Set(float64(count))
}
