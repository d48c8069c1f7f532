// Package ratelimit provides fixed-window, per-IP request throttling backed
// by an atomic counter store. Rules are an explicit ordered list of
// predicate+limit+window tuples; the counter store (not this package) is
// the source of atomicity for increments.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is the atomic increment-with-expiry contract the policy runs on.
// Implementations must guarantee linearizable increments per key and
// TTL-based expiry at the window boundary.
type Counter interface {
	// Increment atomically increments the counter for key, starting a new
	// fixed window of the given duration if the key did not exist. It
	// returns the post-increment count and the time remaining until the
	// window resets.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// Clear removes all counters. Test and operational utility only.
	Clear(ctx context.Context) error
}

// incrScript atomically increments a key and arms its expiry on first use.
// Returning the TTL in the same script keeps count and reset time from one
// snapshot.
var incrScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('EXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('TTL', KEYS[1])
	return {count, ttl}
`)

// RedisCounter implements Counter on a shared Redis instance.
type RedisCounter struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCounter creates a Redis-backed counter store.
// All keys are namespaced under keyPrefix.
func NewRedisCounter(client *redis.Client, keyPrefix string) *RedisCounter {
	return &RedisCounter{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Increment implements Counter using a Lua script for atomicity.
func (c *RedisCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	result, err := incrScript.Run(ctx, c.client, []string{c.keyPrefix + key}, seconds).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("redis increment: %w", err)
	}
	if len(result) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis response length: %d", len(result))
	}

	count := result[0]
	ttl := time.Duration(result[1]) * time.Second
	if ttl <= 0 {
		// TTL can read -1 in the window between INCR and EXPIRE of a
		// racing first increment; treat it as a fresh window.
		ttl = window
	}
	return count, ttl, nil
}

// Clear removes every counter under the key prefix via SCAN+DEL.
func (c *RedisCounter) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection is usable.
func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// MemoryCounter implements Counter with an in-process map. It is safe for
// concurrent use within one process but offers no cross-process sharing;
// use it in tests and single-instance development only.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	// now is overridable for tests.
	now func() time.Time
}

type memoryEntry struct {
	count    int64
	expireAt time.Time
}

// NewMemoryCounter creates an in-process counter store.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// SetNowFunc overrides the clock. Test hook.
func (c *MemoryCounter) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Increment implements Counter.
func (c *MemoryCounter) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.entries[key]
	if !ok || !entry.expireAt.After(now) {
		entry = &memoryEntry{expireAt: now.Add(window)}
		c.entries[key] = entry
	}
	entry.count++
	return entry.count, entry.expireAt.Sub(now), nil
}

// Clear implements Counter.
func (c *MemoryCounter) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*memoryEntry)
	return nil
}
