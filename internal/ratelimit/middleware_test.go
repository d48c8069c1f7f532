package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingCounter simulates an unreachable counter store.
type failingCounter struct{}

func (failingCounter) Increment(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

func (failingCounter) Clear(context.Context) error { return nil }

func testWriters() ResponseWriterFuncs {
	return ResponseWriterFuncs{
		TooManyRequests: func(w http.ResponseWriter, message string) {
			http.Error(w, message, http.StatusTooManyRequests)
		},
		ServiceUnavailable: func(w http.ResponseWriter, message string) {
			http.Error(w, message, http.StatusServiceUnavailable)
		},
	}
}

func testHandler(policy *Policy, failOpen bool) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return Middleware(policy, failOpen, testWriters(), logger)(next)
}

func doRequest(t *testing.T, handler http.Handler, method, path, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_AllowsUnderLimit(t *testing.T) {
	policy := NewPolicy(NewMemoryCounter(), DefaultRules(100, 5, time.Minute))
	handler := testHandler(policy, false)

	for i := 0; i < 100; i++ {
		rec := doRequest(t, handler, http.MethodGet, "/api/tags", "1.2.3.4:5555")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestMiddleware_RejectsOverLimit(t *testing.T) {
	policy := NewPolicy(NewMemoryCounter(), DefaultRules(100, 5, time.Minute))
	handler := testHandler(policy, false)

	for i := 0; i < 5; i++ {
		rec := doRequest(t, handler, http.MethodPost, "/api/books", "1.2.3.4:5555")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, handler, http.MethodPost, "/api/books", "1.2.3.4:5555")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Positive(t, retryAfter)
	assert.LessOrEqual(t, retryAfter, 60)
}

func TestMiddleware_KeysOnForwardedFor(t *testing.T) {
	policy := NewPolicy(NewMemoryCounter(), DefaultRules(100, 5, time.Minute))
	handler := testHandler(policy, false)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/books", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// Same proxy, different client: fresh bucket.
	req := httptest.NewRequest(http.MethodPost, "/api/books", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_FailClosed(t *testing.T) {
	policy := NewPolicy(failingCounter{}, DefaultRules(100, 5, time.Minute))
	handler := testHandler(policy, false)

	rec := doRequest(t, handler, http.MethodGet, "/api/tags", "1.2.3.4:5555")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMiddleware_FailOpen(t *testing.T) {
	policy := NewPolicy(failingCounter{}, DefaultRules(100, 5, time.Minute))
	handler := testHandler(policy, true)

	rec := doRequest(t, handler, http.MethodGet, "/api/tags", "1.2.3.4:5555")
	assert.Equal(t, http.StatusOK, rec.Code)
}
