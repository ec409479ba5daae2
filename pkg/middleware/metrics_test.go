package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMetric(t *testing.T, m prometheus.Metric) *dto.Metric {
	t.Helper()
	out := &dto.Metric{}
	require.NoError(t, m.Write(out))
	return out
}

func meteredContacts(service string) http.Handler {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(service))
	r.Get("/contacts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "0" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":1}`))
	})
	return r
}

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	const svc = "metrics-route-test"
	h := meteredContacts(svc)

	for _, id := range []string{"1", "2", "3", "0"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/contacts/"+id, nil))
	}

	ok := readMetric(t, requestsTotal.WithLabelValues(svc, http.MethodGet, "/contacts/{id}", "200"))
	assert.Equal(t, float64(3), ok.GetCounter().GetValue())
	missing := readMetric(t, requestsTotal.WithLabelValues(svc, http.MethodGet, "/contacts/{id}", "404"))
	assert.Equal(t, float64(1), missing.GetCounter().GetValue())

	latency := readMetric(t, requestSeconds.WithLabelValues(svc, http.MethodGet, "/contacts/{id}").(prometheus.Metric))
	assert.Equal(t, uint64(4), latency.GetHistogram().GetSampleCount())

	size := readMetric(t, responseBytes.WithLabelValues(svc, "/contacts/{id}").(prometheus.Metric))
	assert.Equal(t, float64(3*len(`{"id":1}`)), size.GetHistogram().GetSampleSum())
}

func TestPrometheusMetrics_UnmatchedRoute(t *testing.T) {
	const svc = "metrics-unmatched-test"
	meteredContacts(svc).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	m := readMetric(t, requestsTotal.WithLabelValues(svc, http.MethodGet, unmatchedRoute, "404"))
	assert.Equal(t, float64(1), m.GetCounter().GetValue())
}

func TestPrometheusMetrics_InFlightReturnsToZero(t *testing.T) {
	const svc = "metrics-inflight-test"
	var during float64
	h := PrometheusMetrics(svc)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		during = readMetric(t, requestsInFlight.WithLabelValues(svc)).GetGauge().GetValue()
		w.WriteHeader(http.StatusNoContent)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/contacts/4", nil))

	assert.Equal(t, float64(1), during)
	assert.Equal(t, float64(0), readMetric(t, requestsInFlight.WithLabelValues(svc)).GetGauge().GetValue())
}
