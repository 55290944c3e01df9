package middleware

import (
	"net/http"

	"github.com/platinummonkey/turnstile/pkg/csrf"
	"github.com/platinummonkey/turnstile/pkg/httputil"
	"github.com/platinummonkey/turnstile/pkg/observability"
)

// TokenHeader is the preferred transport for the anti-forgery token
const TokenHeader = "X-CSRF-Token"

// Body fields checked when the header is absent, in order
var tokenBodyFields = []string{"csrfToken", "_csrf"}

// CSRFProtect validates anti-forgery tokens on mutating requests. It must run
// after Auth.Require (it needs the resolved user) and after BodyCache (the
// in-body token fallback reads the cached body, never the raw stream).
type CSRFProtect struct {
	manager    *csrf.Manager
	metrics    *observability.Metrics
	production bool
}

// NewCSRFProtect creates the CSRF validation middleware. In non-production
// environments rejections carry store diagnostics in a debug block.
func NewCSRFProtect(manager *csrf.Manager, metrics *observability.Metrics, production bool) *CSRFProtect {
	return &CSRFProtect{
		manager:    manager,
		metrics:    metrics,
		production: production,
	}
}

// Handler enforces token validation on POST, PUT, PATCH and DELETE requests.
// Safe methods pass through untouched. Tokens are not burned on use: the same
// token stays valid for its whole lifetime.
func (p *CSRFProtect) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		authCtx := GetAuthContext(r)
		if authCtx == nil {
			// Misordered pipeline or an unauthenticated caller that slipped
			// past session verification; either way the canonical 401 applies.
			httputil.WriteUnauthorized(w)
			return
		}

		supplied := extractToken(r)
		if supplied == "" {
			p.countRejection("missing")
			p.reject(w, r, authCtx.UserID, "CSRF token is required")
			return
		}

		valid, err := p.manager.Validate(r.Context(), authCtx.UserID, supplied)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("csrf validation failed")
			p.countRejection("store_error")
			p.reject(w, r, authCtx.UserID, "Invalid CSRF token")
			return
		}
		if !valid {
			p.countValidation("invalid")
			p.countRejection("invalid")
			p.reject(w, r, authCtx.UserID, "Invalid CSRF token")
			return
		}

		p.countValidation("valid")
		next.ServeHTTP(w, r)
	})
}

// extractToken reads the supplied token, header first, cached body second
func extractToken(r *http.Request) string {
	if token := r.Header.Get(TokenHeader); token != "" {
		return token
	}

	body := CachedBody(r)
	for _, field := range tokenBodyFields {
		if token, ok := body[field].(string); ok && token != "" {
			return token
		}
	}
	return ""
}

func (p *CSRFProtect) reject(w http.ResponseWriter, r *http.Request, userID, message string) {
	if p.production {
		httputil.WriteForbidden(w, message)
		return
	}

	resp := httputil.ErrorResponse{Error: message}
	if stats, err := p.manager.Stats(r.Context(), userID); err == nil {
		resp.Debug = map[string]interface{}{
			"tokenStoreSize": stats.TotalTokens,
			"userHasToken":   stats.UserHasToken,
			"suppliedVia":    suppliedVia(r),
		}
	}
	httputil.WriteErrorResponse(w, http.StatusForbidden, resp)
}

func suppliedVia(r *http.Request) string {
	if r.Header.Get(TokenHeader) != "" {
		return "header"
	}
	body := CachedBody(r)
	for _, field := range tokenBodyFields {
		if token, ok := body[field].(string); ok && token != "" {
			return "body:" + field
		}
	}
	return "none"
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (p *CSRFProtect) countValidation(outcome string) {
	if p.metrics != nil {
		p.metrics.CSRFValidationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (p *CSRFProtect) countRejection(reason string) {
	if p.metrics != nil {
		p.metrics.CSRFRejectionsTotal.WithLabelValues(reason).Inc()
	}
}
