package middleware

import (
	"fmt"
	"math"
	"net/http"

	"github.com/platinummonkey/turnstile/pkg/httputil"
	"github.com/platinummonkey/turnstile/pkg/observability"
	"github.com/platinummonkey/turnstile/pkg/ratelimit"
)

// RateLimit throttles requests per caller key and operation category
type RateLimit struct {
	limiter ratelimit.Limiter
	metrics *observability.Metrics
}

// NewRateLimit creates the rate limiting middleware
func NewRateLimit(limiter ratelimit.Limiter, metrics *observability.Metrics) *RateLimit {
	return &RateLimit{
		limiter: limiter,
		metrics: metrics,
	}
}

// ByClientIP limits by network vantage point. Used in front of session
// verification, where no identity is available yet.
func (m *RateLimit) ByClientIP(category ratelimit.Category) func(http.Handler) http.Handler {
	return m.limit(category, "ip", func(r *http.Request) string {
		return "ip:" + httputil.ClientIP(r)
	})
}

// ByUser limits by resolved user ID. Must run after Auth.Require; requests
// that somehow arrive without identity fall back to the network key so they
// are still counted somewhere.
func (m *RateLimit) ByUser(category ratelimit.Category) func(http.Handler) http.Handler {
	return m.limit(category, "user", func(r *http.Request) string {
		if authCtx := GetAuthContext(r); authCtx != nil {
			return "user:" + authCtx.UserID
		}
		return "ip:" + httputil.ClientIP(r)
	})
}

func (m *RateLimit) limit(category ratelimit.Category, keyType string, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.countCheck(category, keyType)

			decision, err := m.limiter.Allow(r.Context(), keyFn(r), category)
			if err != nil {
				// Availability beats strict quota enforcement here
				observability.FromContext(r.Context()).WithError(err).Warn("rate limit check failed, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				m.countRejection(category, keyType)
				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				httputil.WriteRateLimited(w, decision.Limit, retryAfter)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimit) countCheck(category ratelimit.Category, keyType string) {
	if m.metrics != nil {
		m.metrics.RateLimitChecksTotal.WithLabelValues(string(category), keyType).Inc()
	}
}

func (m *RateLimit) countRejection(category ratelimit.Category, keyType string) {
	if m.metrics != nil {
		m.metrics.RateLimitRejectionsTotal.WithLabelValues(string(category), keyType).Inc()
	}
}
