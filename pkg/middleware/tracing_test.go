package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return rec
}

func tracedContacts(status int) http.Handler {
	r := chi.NewRouter()
	r.Use(Tracing("contacts"))
	r.Get("/contacts/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
	return r
}

func attr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_NamesSpanAfterRoutePattern(t *testing.T) {
	rec := installRecorder(t)

	w := httptest.NewRecorder()
	tracedContacts(http.StatusOK).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contacts/17", nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /contacts/{id}", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())

	route, ok := attr(span, "http.route")
	require.True(t, ok)
	assert.Equal(t, "/contacts/{id}", route.AsString())
	code, ok := attr(span, "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusOK), code.AsInt64())
}

func TestTracing_ErrorStatusOnlyFor5xx(t *testing.T) {
	tests := []struct {
		status int
		want   codes.Code
	}{
		{http.StatusNotFound, codes.Unset},
		{http.StatusTooManyRequests, codes.Unset},
		{http.StatusServiceUnavailable, codes.Error},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			rec := installRecorder(t)
			tracedContacts(tt.status).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/contacts/1", nil))

			spans := rec.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.want, spans[0].Status().Code)
		})
	}
}

func TestTracing_ContinuesInboundTrace(t *testing.T) {
	rec := installRecorder(t)

	req := httptest.NewRequest(http.MethodGet, "/contacts/5", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	tracedContacts(http.StatusOK).ServeHTTP(w, req)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())

	// The response carries the server span so clients can correlate.
	assert.Contains(t, w.Header().Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
	assert.Contains(t, w.Header().Get("traceparent"), spans[0].SpanContext().SpanID().String())
}

func TestTracing_UnmatchedRouteKeepsMethodName(t *testing.T) {
	rec := installRecorder(t)
	tracedContacts(http.StatusOK).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/nowhere", nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST", spans[0].Name())
	_, ok := attr(spans[0], "http.route")
	assert.False(t, ok)
}

func TestScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "http", scheme(req))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https", scheme(req))

	req.Header.Set("X-Forwarded-Proto", "gopher")
	assert.Equal(t, "http", scheme(req))
}
