package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal   *prometheus.CounterVec
	AuthzCacheHitsTotal   *prometheus.CounterVec
	AuthzCacheMissesTotal *prometheus.CounterVec
	QuotaRejectionsTotal  *prometheus.CounterVec

	// Pagination metrics
	PaginationQueriesTotal  *prometheus.CounterVec
	PaginationQueryDuration *prometheus.HistogramVec
	PaginationPageSize      *prometheus.HistogramVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec
	StorageRetriesTotal      *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive    prometheus.Gauge
	DBConnectionsIdle      prometheus.Gauge
	DBConnectionsWaitCount prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberbase_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memberbase_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memberbase_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memberbase_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Authorization metrics
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberbase_authz_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"capability", "decision"},
		),
		AuthzCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberbase_authz_cache_hits_total",
				Help: "Total number of authorization cache hits",
			},
			[]string{"capability"},
		),
		AuthzCacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberbase_authz_cache_misses_total",
				Help: "Total number of authorization cache misses",
			},
			[]string{"capability"},
		),
		QuotaRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberbase_quota_rejections_total",
				Help: "Total number of requests rejected by quota limits",
			},
			[]string{"resource"},
		),

		// Pagination metrics
		PaginationQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberbase_pagination_queries_total",
				Help: "Total number of cursor pagination queries",
			},
			[]string{"resource", "status"},
		),
		PaginationQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memberbase_pagination_query_duration_seconds",
				Help:    "Cursor pagination query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource"},
		),
		PaginationPageSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memberbase_pagination_page_size",
				Help:    "Number of rows returned per page",
				Buckets: []float64{1, 5, 10, 24, 50, 100},
			},
			[]string{"resource"},
		),

		// Storage metrics
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberbase_storage_operations_total",
				Help: "Total number of object storage operations",
			},
			[]string{"operation", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memberbase_storage_operation_duration_seconds",
				Help:    "Object storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		StorageRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberbase_storage_retries_total",
				Help: "Total number of retried object storage operations",
			},
			[]string{"operation"},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "memberbase_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "memberbase_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "memberbase_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.AuthzDecisionsTotal,
		m.AuthzCacheHitsTotal,
		m.AuthzCacheMissesTotal,
		m.QuotaRejectionsTotal,
		m.PaginationQueriesTotal,
		m.PaginationQueryDuration,
		m.PaginationPageSize,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.StorageRetriesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(r.ContentLength))
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// MetricsHandler returns an http.Handler serving the registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
