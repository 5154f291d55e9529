package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KDE/macaw-movies/internal/metrics"
)

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)
	assert.Equal(t, http.StatusOK, rw.statusCode)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusNotFound, rw.statusCode)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	n, err := rw.Write([]byte("missing"))
	require.NoError(t, err)
	assert.Equal(t, int64(n), rw.bytesWritten)
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "/api/movies", want: "/api/movies"},
		{in: "a\nb\rc", want: "a b c"},
		{in: "\x1b[31mred", want: "[31mred"},
		{in: "tab\tok\x00", want: "tab\tok"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeLogField(tt.in))
	}
}

func TestShouldSkip(t *testing.T) {
	cfg := DefaultLoggingConfig()
	assert.True(t, shouldSkip("/metrics", cfg))
	assert.True(t, shouldSkip("/healthz", cfg))
	assert.False(t, shouldSkip("/version", cfg))

	cfg.LogHealthChecks = true
	assert.False(t, shouldSkip("/healthz", cfg))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "10.0.0.7", clientIP(r))

	r.Header.Set("X-Forwarded-For", "192.168.1.2, 10.0.0.1")
	assert.Equal(t, "192.168.1.2", clientIP(r))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/version", normalizePath("/version"))
	assert.Equal(t, "/api/stats", normalizePath("/api/stats"))
	assert.Equal(t, "/api/movies/{id}", normalizePath("/api/movies/42"))
	assert.Equal(t, "/api/movies/{id}", normalizePath("/api/movies/42/poster"))
}

func TestMetricsMiddleware(t *testing.T) {
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/movies/{id}", "418")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/movies/9", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	skipped := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/healthz", "418")
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Zero(t, testutil.ToFloat64(skipped))
}

func TestLoggerPassesThrough(t *testing.T) {
	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version?x=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
