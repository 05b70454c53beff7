// Package metrics provides Prometheus instrumentation for the HTTP surface.
//
// Wire it up once in the router:
//
//	r.Use(metrics.Middleware)
//	r.Get("/metrics", metrics.Handler().ServeHTTP)
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "estoque",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estoque",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "status"},
	)
)

func init() {
	prometheus.MustRegister(requestDuration, requestTotal)
}

// Middleware records duration and count for every request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := strconv.Itoa(ww.Status())
		requestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
		requestTotal.WithLabelValues(r.Method, status).Inc()
	})
}

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
