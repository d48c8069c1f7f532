package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhavenapp/bookhaven-server/internal/ratelimit"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
	"github.com/bookhavenapp/bookhaven-server/internal/store/sqlite"
)

// testEnvelope mirrors the response envelope for decoding in tests.
type testEnvelope[T any] struct {
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

// testServer bundles the server under test with request helpers.
type testServer struct {
	t      *testing.T
	server *Server
}

type serverOptions struct {
	globalLimit    int64
	bookWriteLimit int64
}

// setupTestServer creates a test server backed by a real store and an
// in-process throttle counter with generous limits.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWithLimits(t, serverOptions{globalLimit: 1000, bookWriteLimit: 1000})
}

func setupTestServerWithLimits(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := sqlite.Open(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authService := service.NewAuthService(s, 24*time.Hour, logger)
	bookService := service.NewBookService(s, logger)
	tagService := service.NewTagService(s, logger)

	policy := ratelimit.NewPolicy(
		ratelimit.NewMemoryCounter(),
		ratelimit.DefaultRules(opts.globalLimit, opts.bookWriteLimit, time.Minute),
	)

	server := NewServer(authService, bookService, tagService, policy, false, logger)

	return &testServer{t: t, server: server}
}

// do performs a request against the test server. A non-empty token is sent
// as a bearer Authorization header.
func (ts *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:5555"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

// signUpAndIn registers a user and signs them in, returning the bearer token.
func (ts *testServer) signUpAndIn(email string) string {
	ts.t.Helper()

	resp := ts.do(http.MethodPost, "/api/users", map[string]any{
		"email":                 email,
		"password":              "password123",
		"password_confirmation": "password123",
	}, "")
	require.Equal(ts.t, http.StatusCreated, resp.Code)

	resp = ts.do(http.MethodPost, "/api/users/sign_in", map[string]any{
		"email":    email,
		"password": "password123",
	}, "")
	require.Equal(ts.t, http.StatusCreated, resp.Code)

	header := resp.Header().Get("Authorization")
	require.NotEmpty(ts.t, header)
	require.True(ts.t, len(header) > len("Bearer "))
	return header[len("Bearer "):]
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()

	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[map[string]string](t, resp)
	assert.True(t, envelope.Success)
	assert.Equal(t, "healthy", envelope.Data["status"])
}
