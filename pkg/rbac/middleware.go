package rbac

import (
	"net/http"
	"strings"

	"github.com/platinummonkey/turnstile/pkg/httputil"
	"github.com/platinummonkey/turnstile/pkg/middleware"
	"github.com/platinummonkey/turnstile/pkg/observability"
)

// RequireRole wraps a handler so only users holding at least one of the given
// roles get through. Runs after session verification; requests without
// identity receive the canonical 401. Membership lookup failures deny access:
// authorization fails closed.
func RequireRole(checker *Checker, metrics *observability.Metrics, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := middleware.GetAuthContext(r)
			if authCtx == nil {
				httputil.WriteUnauthorized(w)
				return
			}

			allowed, err := checker.HasAnyRole(r.Context(), authCtx.UserID, roles)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Error("role membership check failed")
				countRole(metrics, "error")
				forbiddenRoles(w, roles)
				return
			}
			if !allowed {
				countRole(metrics, "denied")
				forbiddenRoles(w, roles)
				return
			}

			countRole(metrics, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalRole enforces role membership only for authenticated callers.
// Anonymous requests pass through; a resolved identity without the roles is
// still rejected.
func OptionalRole(checker *Checker, metrics *observability.Metrics, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := middleware.GetAuthContext(r)
			if authCtx == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := checker.HasAnyRole(r.Context(), authCtx.UserID, roles)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Error("role membership check failed")
				countRole(metrics, "error")
				forbiddenRoles(w, roles)
				return
			}
			if !allowed {
				countRole(metrics, "denied")
				forbiddenRoles(w, roles)
				return
			}

			countRole(metrics, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func forbiddenRoles(w http.ResponseWriter, roles []string) {
	httputil.WriteErrorResponse(w, http.StatusForbidden, httputil.ErrorResponse{
		Error:   "Insufficient permissions",
		Message: "requires one of roles: " + strings.Join(roles, ", "),
	})
}

func countRole(metrics *observability.Metrics, outcome string) {
	if metrics != nil {
		metrics.RoleChecksTotal.WithLabelValues(outcome).Inc()
	}
}
