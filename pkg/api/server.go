// Package api exposes the HTTP surface: the anti-forgery token endpoint and
// example resource routes wired through the full authentication pipeline.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/turnstile/pkg/csrf"
	"github.com/platinummonkey/turnstile/pkg/middleware"
	"github.com/platinummonkey/turnstile/pkg/observability"
	"github.com/platinummonkey/turnstile/pkg/ratelimit"
	"github.com/platinummonkey/turnstile/pkg/rbac"
)

// Server represents the API server
type Server struct {
	router   *mux.Router
	pipeline *middleware.Pipeline
	tokens   *csrf.Manager
	checker  *rbac.Checker
	metrics  *observability.Metrics
}

// NewServer creates a new API server with all routes registered
func NewServer(pipeline *middleware.Pipeline, tokens *csrf.Manager, checker *rbac.Checker, metrics *observability.Metrics) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		pipeline: pipeline,
		tokens:   tokens,
		checker:  checker,
		metrics:  metrics,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Token issuance requires a session but no token of its own (it is a GET);
	// both rate-limit checks still apply
	s.router.Handle("/api/csrf-token", s.instrument("/api/csrf-token",
		s.authenticated(ratelimit.CategoryGeneral)(http.HandlerFunc(s.getCSRFToken)),
	)).Methods("GET")

	s.router.Handle("/api/session", s.instrument("/api/session",
		s.authenticated(ratelimit.CategoryAuth)(http.HandlerFunc(s.getSession)),
	)).Methods("GET")

	// Example resource demonstrating the full pipeline on mutations
	s.router.Handle("/api/items", s.instrument("/api/items",
		s.pipeline.Public(ratelimit.CategoryGeneral)(http.HandlerFunc(s.listItems)),
	)).Methods("GET")

	s.router.Handle("/api/items", s.instrument("/api/items",
		s.pipeline.Protected(ratelimit.CategoryGeneral)(http.HandlerFunc(s.createItem)),
	)).Methods("POST")

	s.router.Handle("/api/items/{id}", s.instrument("/api/items/{id}",
		s.pipeline.Protected(ratelimit.CategoryGeneral)(
			rbac.RequireRole(s.checker, s.metrics, "admin")(http.HandlerFunc(s.deleteItem)),
		),
	)).Methods("DELETE")

	s.router.Handle("/api/messages", s.instrument("/api/messages",
		s.pipeline.Protected(ratelimit.CategoryChat)(http.HandlerFunc(s.createMessage)),
	)).Methods("POST")
}

// instrument wraps a route with request count and duration metrics, labeled by
// the route template so path variables do not blow up cardinality
func (s *Server) instrument(path string, next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return s.metrics.InstrumentHandler(path, next)
}

// authenticated builds the chain for session-gated read endpoints: both
// rate-limit checks and session verification, no body cache or CSRF
func (s *Server) authenticated(category ratelimit.Category) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return s.pipeline.RateLimit.ByClientIP(category)(
			s.pipeline.Auth.Require(
				s.pipeline.RateLimit.ByUser(category)(next),
			),
		)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router so outer middleware can wrap it
func (s *Server) Router() *mux.Router {
	return s.router
}
