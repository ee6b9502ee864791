package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedrop_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filedrop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// ObjectOperations counts object lifecycle operations by result,
// updated from the service layer.
var ObjectOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "filedrop_object_operations_total",
		Help: "Total number of object store operations",
	},
	[]string{"operation", "result"},
)

// SlugAllocations counts slug minting attempts by outcome.
var SlugAllocations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "filedrop_slug_allocations_total",
		Help: "Total number of short-link allocation outcomes",
	},
	[]string{"outcome"},
)

// Metrics returns HTTP middleware that records request counts and durations.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			path := normalizePath(r.URL.Path)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath collapses variable path segments so metric label
// cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/f/"):
		return "/f/{key}"
	case strings.HasPrefix(path, "/s/"):
		return "/s/{slug}"
	case strings.HasPrefix(path, "/swagger/"):
		return "/swagger"
	}
	return path
}
