// Package middleware implements the request-authentication and anti-forgery
// pipeline stages. Each stage is a func(http.Handler) http.Handler composed
// by the router; stages communicate only through immutable context values.
//
// Canonical ordering for a protected mutating endpoint (outer to inner):
//
//	RateLimit.ByClientIP -> Auth.Require -> RateLimit.ByUser -> BodyCache ->
//	CSRFProtect.Handler -> [rbac.RequireRole] -> handler
//
// The anonymous rate-limit check runs before session verification so that
// credential stuffing is throttled without spending a provider round trip;
// the user-keyed check runs after so an authenticated caller cannot escape
// quotas by rotating network vantage points.
package middleware

import (
	"net/http"

	"github.com/platinummonkey/turnstile/pkg/contextkeys"
	"github.com/platinummonkey/turnstile/pkg/httputil"
	"github.com/platinummonkey/turnstile/pkg/identity"
	"github.com/platinummonkey/turnstile/pkg/observability"
)

// Auth verifies the caller's session against the identity provider
type Auth struct {
	provider identity.Provider
	metrics  *observability.Metrics
}

// NewAuth creates the session verification middleware
func NewAuth(provider identity.Provider, metrics *observability.Metrics) *Auth {
	return &Auth{
		provider: provider,
		metrics:  metrics,
	}
}

// Require wraps a handler with mandatory session verification. Requests
// without a valid session receive the canonical 401; absent sessions,
// expired sessions, and provider failures are indistinguishable to the
// caller.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.provider.CurrentUser(r.Context(), r)
		if err != nil {
			a.countAuth("rejected")
			if err != identity.ErrNoSession {
				observability.FromContext(r.Context()).WithError(err).Warn("session verification failed")
			}
			httputil.WriteUnauthorized(w)
			return
		}

		a.countAuth("verified")
		ctx := contextkeys.WithAuth(r.Context(), &identity.AuthContext{
			UserID: user.ID,
			User:   user,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional wraps a handler with best-effort session verification. Identity is
// attached when a session resolves; anonymous callers proceed without one.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.provider.CurrentUser(r.Context(), r)
		if err != nil {
			if err != identity.ErrNoSession {
				observability.FromContext(r.Context()).WithError(err).Warn("session verification failed")
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := contextkeys.WithAuth(r.Context(), &identity.AuthContext{
			UserID: user.ID,
			User:   user,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) countAuth(outcome string) {
	if a.metrics != nil {
		a.metrics.AuthChecksTotal.WithLabelValues(outcome).Inc()
	}
}

// GetAuthContext extracts the resolved identity from a request, or nil when
// the request is anonymous
func GetAuthContext(r *http.Request) *identity.AuthContext {
	raw := contextkeys.GetAuth(r.Context())
	if raw == nil {
		return nil
	}
	authCtx, ok := raw.(*identity.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}
