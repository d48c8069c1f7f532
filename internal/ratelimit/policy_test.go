package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(globalLimit, bookWriteLimit int64) (*Policy, *MemoryCounter) {
	counter := NewMemoryCounter()
	return NewPolicy(counter, DefaultRules(globalLimit, bookWriteLimit, time.Minute)), counter
}

func TestPolicy_GlobalLimit(t *testing.T) {
	policy, _ := testPolicy(100, 5)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		verdict, err := policy.Check(ctx, http.MethodGet, "/api/tags", "1.2.3.4")
		require.NoError(t, err)
		require.True(t, verdict.Allowed, "request %d should be admitted", i+1)
	}

	verdict, err := policy.Check(ctx, http.MethodGet, "/api/tags", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, verdict.Allowed)
	assert.Equal(t, "req/ip", verdict.Rule)
	assert.Positive(t, verdict.RetryAfter)
}

func TestPolicy_BookWriteLimit(t *testing.T) {
	policy, _ := testPolicy(100, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		verdict, err := policy.Check(ctx, http.MethodPost, "/api/books", "1.2.3.4")
		require.NoError(t, err)
		require.True(t, verdict.Allowed, "write %d should be admitted", i+1)
	}

	verdict, err := policy.Check(ctx, http.MethodPost, "/api/books", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, verdict.Allowed)
	assert.Equal(t, "books/crud/ip", verdict.Rule)

	// Reads against books are not counted by the write rule.
	verdict, err = policy.Check(ctx, http.MethodGet, "/api/books", "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, verdict.Allowed)
}

func TestPolicy_BookWriteMatchesSubpaths(t *testing.T) {
	policy, _ := testPolicy(100, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		verdict, err := policy.Check(ctx, http.MethodPut, "/api/books/book_1", "1.2.3.4")
		require.NoError(t, err)
		require.True(t, verdict.Allowed)
	}

	verdict, err := policy.Check(ctx, http.MethodDelete, "/api/books/book_1", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, verdict.Allowed)
	assert.Equal(t, "books/crud/ip", verdict.Rule)
}

func TestPolicy_PerIPIsolation(t *testing.T) {
	policy, _ := testPolicy(100, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := policy.Check(ctx, http.MethodPost, "/api/books", "1.2.3.4")
		require.NoError(t, err)
	}

	// A different client has a fresh bucket.
	verdict, err := policy.Check(ctx, http.MethodPost, "/api/books", "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, verdict.Allowed)
}

func TestPolicy_WindowReset(t *testing.T) {
	policy, counter := testPolicy(100, 5)
	ctx := context.Background()

	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	counter.SetNowFunc(func() time.Time { return base })

	for i := 0; i < 6; i++ {
		_, err := policy.Check(ctx, http.MethodPost, "/api/books", "1.2.3.4")
		require.NoError(t, err)
	}

	// Still inside the window: rejected.
	verdict, err := policy.Check(ctx, http.MethodPost, "/api/books", "1.2.3.4")
	require.NoError(t, err)
	require.False(t, verdict.Allowed)

	// After the window elapses the bucket is fresh.
	counter.SetNowFunc(func() time.Time { return base.Add(61 * time.Second) })
	verdict, err = policy.Check(ctx, http.MethodPost, "/api/books", "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, verdict.Allowed)
}

func TestMemoryCounter_Increment(t *testing.T) {
	counter := NewMemoryCounter()
	ctx := context.Background()

	count, ttl, err := counter.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Positive(t, ttl)

	count, _, err = counter.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, counter.Clear(ctx))

	count, _, err = counter.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
