package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const unmatchedRoute = "unmatched"

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "http_server",
		Name:      "requests_total",
		Help:      "Requests served, by route pattern and response code.",
	}, []string{"service", "method", "route", "code"})

	requestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "http_server",
		Name:      "request_duration_seconds",
		Help:      "Handler latency by route pattern.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"service", "method", "route"})

	responseBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "http_server",
		Name:      "response_size_bytes",
		Help:      "Response body size by route pattern.",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
	}, []string{"service", "route"})

	requestsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "http_server",
		Name:      "requests_in_flight",
		Help:      "Requests currently being served.",
	}, []string{"service"})
)

// PrometheusMetrics records request counts, latency and response size keyed
// by chi route pattern, so /contacts/{id} is one series however many ids are
// requested. Requests no route matched share the "unmatched" label.
func PrometheusMetrics(serviceName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inFlight := requestsInFlight.WithLabelValues(serviceName)
			inFlight.Inc()
			defer inFlight.Dec()

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start).Seconds()

			route := unmatchedRoute
			if pattern := routePattern(r); pattern != "" {
				route = pattern
			}

			requestsTotal.WithLabelValues(serviceName, r.Method, route, strconv.Itoa(rec.status)).Inc()
			requestSeconds.WithLabelValues(serviceName, r.Method, route).Observe(elapsed)
			responseBytes.WithLabelValues(serviceName, route).Observe(float64(rec.bytes))
		})
	}
}
