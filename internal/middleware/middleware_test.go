package middleware

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/constants_registry/pkg/logger"
)

func statusHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func TestCacheControlOnSuccessOnly(t *testing.T) {
	cache := CacheControl(ReferenceDataCacheControl)

	rec := httptest.NewRecorder()
	cache(statusHandler(http.StatusOK)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/domains", nil))
	assert.Equal(t, "public, max-age=3153600", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	cache(statusHandler(http.StatusInternalServerError)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/domains", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	implicit := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})
	cache(implicit).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/domains", nil))
	assert.Equal(t, ReferenceDataCacheControl, rec.Header().Get("Cache-Control"))
}

func TestTracingReusesOrCreatesID(t *testing.T) {
	var seen string
	handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get(TraceHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "abc", seen)
	assert.Equal(t, seen, rec.Header().Get(TraceHeader))

	assert.Empty(t, TraceID(context.Background()))
}

func TestCORS(t *testing.T) {
	cors := NewCORSMiddleware([]string{"https://app.example.com", ".example.org"})
	next := statusHandler(http.StatusOK)

	req := httptest.NewRequest(http.MethodOptions, "/api/domains", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	cors.Handler(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authentication")

	req = httptest.NewRequest(http.MethodGet, "/api/domains", nil)
	req.Header.Set("Origin", "https://docs.example.org")
	rec = httptest.NewRecorder()
	cors.Handler(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://docs.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/domains", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	cors.Handler(next).ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code, "disallowed preflight falls through")
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, time.Minute, logger.NewDiscard())
	handler := rl.Handler(statusHandler(http.StatusNoContent))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/domain/neo", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"), "same host shares a bucket")
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:1000"))
	assert.Equal(t, 2, rl.Size())
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute, logger.NewDiscard())
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.getLimiter("a")
	now = now.Add(30 * time.Second)
	rl.getLimiter("b")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, rl.Cleanup())
	assert.Equal(t, 1, rl.Size())
}

func TestRateLimiterJanitor(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute, logger.NewDiscard())
	janitor := rl.Janitor(10 * time.Millisecond)
	assert.Equal(t, "ratelimit-janitor", janitor.Name())

	require.NoError(t, janitor.Start(context.Background()))
	require.NoError(t, janitor.Stop(context.Background()))
}

func TestMetricsAndLoggingUseRouteTemplate(t *testing.T) {
	var route string
	r := mux.NewRouter()
	r.Use(MetricsMiddleware(), LoggingMiddleware(logger.NewDiscard()))
	r.HandleFunc("/api/domain/{domain}", func(w http.ResponseWriter, req *http.Request) {
		route = routeTemplate(req)
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/domain/neo", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "/api/domain/{domain}", route)
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestResponseWriterHijack(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	_, _, err := rw.Hijack()
	assert.Error(t, err)

	under := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw = &responseWriter{ResponseWriter: under, statusCode: http.StatusOK}
	_, _, err = rw.Hijack()
	require.NoError(t, err)
	assert.True(t, under.hijacked)
	assert.Equal(t, http.StatusSwitchingProtocols, rw.statusCode)
	assert.Same(t, under, rw.Unwrap())
}
