package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotContains(t, hash, "correct horse")

	valid, err := VerifyPassword(hash, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = VerifyPassword(hash, "wrong password")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestHashPassword_UniqueSalt(t *testing.T) {
	hash1, err := HashPassword("password123")
	require.NoError(t, err)
	hash2, err := HashPassword("password123")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 2000))
	assert.Error(t, err)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	// Malformed hashes verify as false without leaking why.
	valid, err := VerifyPassword("not-a-valid-hash", "password")
	require.NoError(t, err)
	assert.False(t, valid)
}
