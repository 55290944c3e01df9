package middleware

import (
	"net/http"

	"github.com/platinummonkey/turnstile/pkg/httputil"
	"github.com/platinummonkey/turnstile/pkg/ratelimit"
)

// Pipeline bundles the pipeline stages so routes can be protected with one
// call instead of hand-assembling the ordering everywhere
type Pipeline struct {
	Auth      *Auth
	RateLimit *RateLimit
	CSRF      *CSRFProtect
}

// NewPipeline creates a pipeline from its stages
func NewPipeline(auth *Auth, rateLimit *RateLimit, csrfProtect *CSRFProtect) *Pipeline {
	return &Pipeline{
		Auth:      auth,
		RateLimit: rateLimit,
		CSRF:      csrfProtect,
	}
}

// Protected composes the full chain for an authenticated endpoint in the
// canonical order. Role enforcement, when needed, wraps the handler before it
// is passed in.
func (p *Pipeline) Protected(category ratelimit.Category) func(http.Handler) http.Handler {
	return httputil.Chain(
		p.RateLimit.ByClientIP(category),
		p.Auth.Require,
		p.RateLimit.ByUser(category),
		BodyCache,
		p.CSRF.Handler,
	)
}

// Public composes the chain for an endpoint that serves anonymous callers:
// network-keyed throttling with best-effort identity, no CSRF enforcement
// beyond method scoping (safe methods never carry tokens anyway).
func (p *Pipeline) Public(category ratelimit.Category) func(http.Handler) http.Handler {
	return httputil.Chain(
		p.RateLimit.ByClientIP(category),
		p.Auth.Optional,
		BodyCache,
	)
}
