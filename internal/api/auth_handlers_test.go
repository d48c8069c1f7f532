package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUp_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(http.MethodPost, "/api/users", map[string]any{
		"email":                 "reader@example.com",
		"password":              "password123",
		"password_confirmation": "password123",
	}, "")

	assert.Equal(t, http.StatusCreated, resp.Code)

	envelope := decodeEnvelope[UserResponse](t, resp)
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.ID)
	assert.Equal(t, "reader@example.com", envelope.Data.Email)

	// Sign-up issues no token: no Authorization header, no token material
	// anywhere in the body.
	assert.Empty(t, resp.Header().Get("Authorization"))
	assert.NotContains(t, resp.Body.String(), "token")
	assert.NotContains(t, resp.Body.String(), "password")
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	ts.signUpAndIn("reader@example.com")

	resp := ts.do(http.MethodPost, "/api/users", map[string]any{
		"email":                 "reader@example.com",
		"password":              "password123",
		"password_confirmation": "password123",
	}, "")

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	envelope := decodeEnvelope[struct{}](t, resp)
	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.Error, "already been taken")
}

func TestSignUp_ValidationErrors(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "missing email",
			body: map[string]any{"password": "password123", "password_confirmation": "password123"},
		},
		{
			name: "invalid email",
			body: map[string]any{"email": "nope", "password": "password123", "password_confirmation": "password123"},
		},
		{
			name: "password too short",
			body: map[string]any{"email": "a@b.com", "password": "short", "password_confirmation": "short"},
		},
		{
			name: "confirmation mismatch",
			body: map[string]any{"email": "a@b.com", "password": "password123", "password_confirmation": "other123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(http.MethodPost, "/api/users", tt.body, "")
			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		})
	}
}

func TestSignIn_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(http.MethodPost, "/api/users", map[string]any{
		"email":                 "reader@example.com",
		"password":              "password123",
		"password_confirmation": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.do(http.MethodPost, "/api/users/sign_in", map[string]any{
		"email":    "reader@example.com",
		"password": "password123",
	}, "")

	assert.Equal(t, http.StatusCreated, resp.Code)

	// Token is delivered via the Authorization response header only.
	header := resp.Header().Get("Authorization")
	require.True(t, strings.HasPrefix(header, "Bearer "))
	token := strings.TrimPrefix(header, "Bearer ")
	assert.NotEmpty(t, token)
	assert.NotContains(t, resp.Body.String(), token)

	envelope := decodeEnvelope[UserResponse](t, resp)
	assert.Equal(t, "reader@example.com", envelope.Data.Email)
}

func TestSignIn_BadCredentials(t *testing.T) {
	ts := setupTestServer(t)
	ts.signUpAndIn("reader@example.com")

	wrongPass := ts.do(http.MethodPost, "/api/users/sign_in", map[string]any{
		"email":    "reader@example.com",
		"password": "wrongpassword",
	}, "")
	unknownEmail := ts.do(http.MethodPost, "/api/users/sign_in", map[string]any{
		"email":    "nobody@example.com",
		"password": "password123",
	}, "")

	// Both failures look identical.
	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPass.Body.String(), unknownEmail.Body.String())
}

func TestSignOut_Success(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.signUpAndIn("reader@example.com")

	resp := ts.do(http.MethodDelete, "/api/users/sign_out", nil, token)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, resp.Body.String())

	// The token is revoked.
	resp = ts.do(http.MethodGet, "/api/books", nil, token)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSignOut_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(http.MethodDelete, "/api/users/sign_out", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestProtectedRoutes_UniformUnauthorized(t *testing.T) {
	ts := setupTestServer(t)
	ts.signUpAndIn("reader@example.com")

	cases := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "unknown token", token: "not-a-real-token"},
	}

	var bodies []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := ts.do(http.MethodGet, "/api/books", nil, tc.token)
			assert.Equal(t, http.StatusUnauthorized, resp.Code)

			envelope := decodeEnvelope[struct{}](t, resp)
			assert.False(t, envelope.Success)
			assert.Equal(t, "Unauthorized", envelope.Error)
			bodies = append(bodies, resp.Body.String())
		})
	}

	// All failure modes produce byte-identical bodies.
	for i := 1; i < len(bodies); i++ {
		assert.Equal(t, bodies[0], bodies[i])
	}
}
