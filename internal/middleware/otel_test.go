package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"salescleanse/internal/infrastructure"
	"salescleanse/internal/shared/testutil"
)

func newTestOTelMiddleware(t *testing.T) (*OTelMiddleware, *testutil.BufferedSlogHandler) {
	t.Helper()

	logger, logs := testutil.NewTestLogger(t)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	providers := &infrastructure.OTelProviders{
		TracerProvider: tp,
		MeterProvider:  mp,
		Tracer:         tp.Tracer("test"),
		Meter:          mp.Meter("test"),
		Logger:         logger,
	}

	m, err := NewOTelMiddleware(providers)
	require.NoError(t, err)
	return m, logs
}

func TestOTelMiddleware_Handler(t *testing.T) {
	m, logs := newTestOTelMiddleware(t)

	var handlerTraceID string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerTraceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cleanse", nil)
	req.Header.Set("User-Agent", "cleanse-test/1.0")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "created", w.Body.String())

	// The span's trace ID is installed for log correlation
	assert.Len(t, handlerTraceID, 32)

	assert.True(t, logs.ContainsMessage("HTTP request completed"))
	testutil.AssertLogAttr(t, logs, "status_code", int64(http.StatusCreated))
	testutil.AssertLogAttr(t, logs, "method", http.MethodPost)
}

func TestOTelMiddleware_Metrics(t *testing.T) {
	m, _ := newTestOTelMiddleware(t)
	require.NotNil(t, m.Metrics())
	assert.NotNil(t, m.Metrics().RunsTotal)
	assert.NotNil(t, m.Metrics().HTTPRequestsTotal)
}

func TestResponseWriter_CapturesStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: 200}

	rw.WriteHeader(http.StatusTeapot)
	n, err := rw.Write([]byte("abc"))
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, http.StatusTeapot, rw.statusCode)
	assert.Equal(t, int64(3), rw.bytesWritten)
}

func TestGetRoutePattern(t *testing.T) {
	t.Run("returns chi route pattern", func(t *testing.T) {
		var pattern string
		r := chi.NewRouter()
		r.Get("/api/v1/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			pattern = getRoutePattern(req)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-42", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "/api/v1/runs/{id}", pattern)
	})

	t.Run("falls back to raw path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		assert.Equal(t, "/healthz", getRoutePattern(req))
	})
}

func TestTraceMiddleware_PassesThrough(t *testing.T) {
	handler := TraceMiddleware("export.download")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/results/cleaned.csv", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebSocketTraceMiddleware(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)

	called := false
	handler := WebSocketTraceMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.True(t, called)
	assert.True(t, logs.ContainsMessage("WebSocket upgrade attempt"))
	testutil.AssertLogAttr(t, logs, "origin", "http://localhost:8080")
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.5"}, "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"remote addr fallback", nil, "192.0.2.1:1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealIP(req))
		})
	}
}
