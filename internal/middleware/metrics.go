package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests no route pattern matched.
const unmatchedRoute = "unmatched"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	httpResponseSize = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "http_response_size_bytes",
			Help: "HTTP response size in bytes",
		},
		[]string{"method", "route"},
	)

	rateLimitAllowedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limit_allowed_total",
			Help: "Total number of requests allowed by a rate limit rule",
		},
		[]string{"rule"},
	)

	rateLimitDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limit_denied_total",
			Help: "Total number of requests rejected by a rate limit rule",
		},
		[]string{"rule"},
	)

	rateLimitErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limit_errors_total",
			Help: "Total number of failed rate limit checks",
		},
		[]string{"rule"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpResponseSize)
	prometheus.MustRegister(rateLimitAllowedTotal)
	prometheus.MustRegister(rateLimitDeniedTotal)
	prometheus.MustRegister(rateLimitErrorsTotal)
}

// Metrics returns middleware that collects Prometheus metrics. Requests are
// labelled with the matched ServeMux pattern rather than the raw path, so
// session ids and topic names do not create new series.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeOf(r)

			httpRequestsTotal.WithLabelValues(
				r.Method,
				route,
				strconv.Itoa(rw.statusCode),
			).Inc()

			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			httpResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// routeOf returns the pattern the ServeMux matched for r. The mux records it
// on the request while serving.
func routeOf(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}

	return r.Pattern
}
