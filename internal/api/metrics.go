package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// routeUnknown labels requests that matched no route, keeping label
// cardinality bounded.
const routeUnknown = "unknown"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "texwrap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	// Compile requests hold the connection for the whole engine run, so
	// the buckets reach well past typical API latencies.
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "texwrap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 15, 30, 60, 120},
	}, []string{"method", "route"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "texwrap",
		Subsystem: "http",
		Name:      "response_bytes",
		Help:      "Response body size by route. Artifacts dominate /v1/compile.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
	}, []string{"route"})
)

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		route := matchedRoute(r)
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		httpResponseSize.WithLabelValues(route).Observe(float64(ww.BytesWritten()))
	})
}

// matchedRoute returns the chi pattern, e.g. /v1/jobs/{id}, that served r.
func matchedRoute(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return routeUnknown
}
