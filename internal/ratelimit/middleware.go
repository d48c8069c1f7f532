package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
)

// ResponseWriterFuncs are the response helpers the middleware needs; they
// are injected so this package stays free of the API envelope format.
type ResponseWriterFuncs struct {
	// TooManyRequests writes a 429 response. The Retry-After header has
	// already been set by the middleware.
	TooManyRequests func(w http.ResponseWriter, message string)
	// ServiceUnavailable writes a 503 response.
	ServiceUnavailable func(w http.ResponseWriter, message string)
}

// Middleware returns an http.Handler middleware enforcing the policy,
// keyed by client IP. Requests rejected by any matching rule receive 429
// with a positive Retry-After header.
//
// If the counter store is unreachable the behavior is explicit: with
// failOpen false (the default deployment posture) the request is rejected
// with 503; with failOpen true it is admitted. Either way the outage is
// logged so it is never a silent decision.
func Middleware(policy *Policy, failOpen bool, writers ResponseWriterFuncs, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			verdict, err := policy.Check(r.Context(), r.Method, r.URL.Path, ip)
			if err != nil {
				logger.Error("Throttle counter store unreachable",
					"error", err,
					"fail_open", failOpen,
					"path", r.URL.Path,
				)
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				writers.ServiceUnavailable(w, "Service temporarily unavailable")
				return
			}

			if !verdict.Allowed {
				logger.Warn("Rate limit exceeded",
					"rule", verdict.Rule,
					"ip", ip,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(verdict)))
				writers.TooManyRequests(w, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds converts a verdict's reset duration to whole seconds,
// rounded up so the value is always positive.
func retryAfterSeconds(v Verdict) int {
	secs := int(math.Ceil(v.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// clientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	// X-Forwarded-For may contain multiple IPs; the first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr (strip port).
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
