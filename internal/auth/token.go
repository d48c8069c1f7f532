package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// tokenSize is the entropy of a bearer token in bytes.
	tokenSize = 32

	// bearerScheme is the Authorization header scheme. Case-sensitive.
	bearerScheme = "Bearer"
)

// GenerateToken creates a cryptographically random opaque bearer token.
// The token is URL-safe base64 and carries no claims; the database row it
// is stored on is the single source of truth for its validity. Uniqueness
// is enforced by the caller via an existence lookup, not by the generator.
func GenerateToken() (string, error) {
	b := make([]byte, tokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ParseBearer extracts the token from an Authorization header value of the
// form "Bearer <token>" (single space, case-sensitive scheme). It returns
// false for anything else; callers must not report which check failed.
func ParseBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != bearerScheme || token == "" {
		return "", false
	}
	// A second space means a malformed header, not a token with spaces.
	if strings.Contains(token, " ") {
		return "", false
	}
	return token, true
}

// FormatBearer renders a token as an Authorization header value.
func FormatBearer(token string) string {
	return bearerScheme + " " + token
}
