package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/platinummonkey/turnstile/pkg/csrf"
	"github.com/platinummonkey/turnstile/pkg/identity"
	"github.com/platinummonkey/turnstile/pkg/ratelimit"
)

// cookieProvider resolves a session only when the request carries the session
// cookie, the way the real identity provider does
type cookieProvider struct {
	user *identity.User
}

func (p *cookieProvider) CurrentUser(ctx context.Context, r *http.Request) (*identity.User, error) {
	if _, err := r.Cookie(identity.SessionCookieName); err != nil {
		return nil, identity.ErrNoSession
	}
	return p.user, nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *csrf.Manager) {
	t.Helper()

	manager := csrf.NewManager(csrf.NewMemoryStore())
	auth := NewAuth(&cookieProvider{user: &identity.User{ID: "user-1", Email: "u@example.com"}}, nil)
	rl := NewRateLimit(ratelimit.NewFixedWindowLimiter(nil), nil)
	protect := NewCSRFProtect(manager, nil, true)

	return NewPipeline(auth, rl, protect), manager
}

func TestPipelineAnonymousMutation(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	handler := pipeline.Protected(ratelimit.CategoryGeneral)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"name":"x"}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPipelineAuthenticatedWithoutToken(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	handler := pipeline.Protected(ratelimit.CategoryGeneral)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"name":"x"}`))
	req.AddCookie(&http.Cookie{Name: identity.SessionCookieName, Value: "sess"})
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPipelineFullPass(t *testing.T) {
	pipeline, manager := newTestPipeline(t)

	token, err := manager.Token(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var gotUser string
	var gotBody map[string]interface{}
	handler := pipeline.Protected(ratelimit.CategoryGeneral)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetAuthContext(r).UserID
		gotBody = CachedBody(r)
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"name":"widget"}`))
	req.AddCookie(&http.Cookie{Name: identity.SessionCookieName, Value: "sess"})
	req.Header.Set(TokenHeader, token)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotUser != "user-1" {
		t.Errorf("expected handler to see user-1, got %q", gotUser)
	}
	if gotBody["name"] != "widget" {
		t.Errorf("expected handler to see cached body, got %v", gotBody)
	}
}

func TestPipelineInBodyToken(t *testing.T) {
	pipeline, manager := newTestPipeline(t)

	token, err := manager.Token(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	called := false
	handler := pipeline.Protected(ratelimit.CategoryGeneral)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"name":"widget","csrfToken":"`+token+`"}`))
	req.AddCookie(&http.Cookie{Name: identity.SessionCookieName, Value: "sess"})
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to be called, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPipelineAnonymousQuota(t *testing.T) {
	manager := csrf.NewManager(csrf.NewMemoryStore())
	auth := NewAuth(&cookieProvider{user: &identity.User{ID: "user-1"}}, nil)
	rl := NewRateLimit(tinyLimiter(1), nil)
	pipeline := NewPipeline(auth, rl, NewCSRFProtect(manager, nil, true))

	handler := pipeline.Protected(ratelimit.CategoryGeneral)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	// Both rejections come from the anonymous check, before session
	// verification ever runs
	first := httptest.NewRequest(http.MethodPost, "/items", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("first request: expected 401, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/items", nil)
	second.RemoteAddr = "10.0.0.1:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
}

func TestPipelinePublicAnonymous(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	called := false
	handler := pipeline.Public(ratelimit.CategoryGeneral)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if GetAuthContext(r) != nil {
			t.Error("expected no identity on anonymous public request")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))

	if !called {
		t.Fatal("expected handler to be called")
	}
}
