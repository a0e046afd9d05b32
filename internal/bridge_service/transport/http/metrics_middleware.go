package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	providerLabelNone    = "none"
	providerLabelUnknown = "unknown"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_bridge",
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the bridge, by route and carrier.",
		},
		[]string{"method", "path", "provider_name", "status_code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sms_bridge",
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests served by the bridge, by route and carrier.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "provider_name"},
	)
)

// PrometheusMetricsMiddleware records request counts and latency by chi
// route pattern and by the {provider_name} of webhook routes. Requests
// rejected with 404 are counted under "unknown" so arbitrary path segments
// never become label values.
func PrometheusMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		statusCode := ww.Status()
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		path, providerName := routeLabels(r, statusCode)

		httpRequestDurationSeconds.WithLabelValues(r.Method, path, providerName).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, path, providerName, strconv.Itoa(statusCode)).Inc()
	})
}

// routeLabels must run after the router has matched the request.
func routeLabels(r *http.Request, statusCode int) (path, providerName string) {
	path, providerName = providerLabelUnknown, providerLabelNone
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return path, providerName
	}
	if p := rctx.RoutePattern(); p != "" {
		path = p
	}
	if name := rctx.URLParam("provider_name"); name != "" {
		providerName = strings.ToLower(name)
		if statusCode == http.StatusNotFound {
			providerName = providerLabelUnknown
		}
	}
	return path, providerName
}
