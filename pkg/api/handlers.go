package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/platinummonkey/turnstile/pkg/httputil"
	"github.com/platinummonkey/turnstile/pkg/middleware"
	"github.com/platinummonkey/turnstile/pkg/observability"
)

// getCSRFToken returns the caller's anti-forgery token, issuing one when no
// unexpired token exists. Repeated calls within the token's lifetime return
// the same value.
func (s *Server) getCSRFToken(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w)
		return
	}

	token, err := s.tokens.Token(r.Context(), authCtx.UserID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("token issuance failed")
		httputil.WriteInternalError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.CSRFTokensIssuedTotal.Inc()
	}

	httputil.WriteSuccess(w, map[string]string{
		"csrfToken": token,
	})
}

// getSession returns the verified identity for the current session
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w)
		return
	}

	httputil.WriteSuccess(w, authCtx.User)
}

// createItem is an example protected mutation: by the time it runs, the
// session is verified, the token validated, and the body cached
func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	body := middleware.CachedBody(r)

	name, _ := body["name"].(string)
	if name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	httputil.WriteCreated(w, map[string]string{
		"id":      uuid.NewString(),
		"name":    name,
		"ownerId": authCtx.UserID,
	})
}

// listItems is an example read endpoint: anonymous callers are allowed, the
// page size comes from a query parameter
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.ParseQueryInt(r, "limit", 50)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"items": []interface{}{},
		"limit": limit,
	})
}

// deleteItem is an example admin-only mutation
func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := httputil.ParsePathStringOrError(w, r, "id"); !ok {
		return
	}

	httputil.WriteNoContent(w)
}

// createMessage is an example chat-category mutation with its own quota
func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	body := middleware.CachedBody(r)

	text, _ := body["text"].(string)
	if text == "" {
		httputil.WriteBadRequest(w, "text is required")
		return
	}

	httputil.WriteCreated(w, map[string]string{
		"id":       uuid.NewString(),
		"text":     text,
		"authorId": authCtx.UserID,
	})
}
