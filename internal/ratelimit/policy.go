package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Rule is one named throttle bucket: a predicate over the request plus a
// quota within a fixed window. Counters are keyed by (rule name, client IP).
type Rule struct {
	// Name identifies the bucket and becomes part of the counter key.
	Name string
	// Limit is the maximum number of requests per window.
	Limit int64
	// Window is the fixed counting window.
	Window time.Duration
	// Match reports whether the rule applies to the request. A nil Match
	// matches every request.
	Match func(method, path string) bool
}

// Matches reports whether the rule applies to the given request shape.
func (r Rule) Matches(method, path string) bool {
	if r.Match == nil {
		return true
	}
	return r.Match(method, path)
}

// Verdict is the outcome of evaluating a request against the rule list.
type Verdict struct {
	// Allowed is false when any matching rule's quota was exceeded.
	Allowed bool
	// RetryAfter is the time until the exceeded rule's window resets.
	// Only meaningful when Allowed is false.
	RetryAfter time.Duration
	// Rule is the name of the rule that rejected the request.
	Rule string
}

// Policy evaluates requests against an ordered rule list using a shared
// counter store. It holds no mutable per-request state of its own.
type Policy struct {
	rules   []Rule
	counter Counter
}

// NewPolicy creates a throttle policy over the given rules.
func NewPolicy(counter Counter, rules []Rule) *Policy {
	return &Policy{
		rules:   rules,
		counter: counter,
	}
}

// DefaultRules returns the standard rule set:
//  1. every request, per IP, globalLimit per window
//  2. book mutations (POST/PUT/DELETE under /api/books), per IP,
//     bookWriteLimit per window
func DefaultRules(globalLimit, bookWriteLimit int64, window time.Duration) []Rule {
	return []Rule{
		{
			Name:   "req/ip",
			Limit:  globalLimit,
			Window: window,
		},
		{
			Name:   "books/crud/ip",
			Limit:  bookWriteLimit,
			Window: window,
			Match:  matchBookWrite,
		},
	}
}

// matchBookWrite matches mutating requests against the books resource.
func matchBookWrite(method, path string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return false
	}
	return strings.HasPrefix(path, "/api/books")
}

// Check increments the counter of every matching rule and reports whether
// the request is admitted. Counters of all matching rules are incremented
// even when an earlier rule already rejected, matching fixed-window
// semantics where each hit consumes quota in every bucket it belongs to.
// A counter store error is returned as-is; the caller decides fail-open
// versus fail-closed.
func (p *Policy) Check(ctx context.Context, method, path, clientIP string) (Verdict, error) {
	verdict := Verdict{Allowed: true}

	for _, rule := range p.rules {
		if !rule.Matches(method, path) {
			continue
		}

		key := rule.Name + ":" + clientIP
		count, ttl, err := p.counter.Increment(ctx, key, rule.Window)
		if err != nil {
			return Verdict{}, err
		}

		if count > rule.Limit && verdict.Allowed {
			verdict = Verdict{
				Allowed:    false,
				RetryAfter: ttl,
				Rule:       rule.Name,
			}
		}
	}

	return verdict, nil
}
