package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platinummonkey/turnstile/pkg/identity"
)

type fakeProvider struct {
	user *identity.User
	err  error
}

func (f *fakeProvider) CurrentUser(ctx context.Context, r *http.Request) (*identity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return resp["error"]
}

func TestRequireAttachesIdentity(t *testing.T) {
	auth := NewAuth(&fakeProvider{user: &identity.User{ID: "user-1", Email: "u@example.com"}}, nil)

	var got *identity.AuthContext
	handler := auth.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetAuthContext(r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	if got == nil {
		t.Fatal("expected auth context to be attached")
	}
	if got.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", got.UserID)
	}
	if got.User.Email != "u@example.com" {
		t.Errorf("expected email to be carried, got %q", got.User.Email)
	}
}

func TestRequireNoSession(t *testing.T) {
	auth := NewAuth(&fakeProvider{err: identity.ErrNoSession}, nil)

	handler := auth.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Authentication required" {
		t.Errorf("unexpected error message: %q", msg)
	}
}

// Provider failures must be indistinguishable from absent sessions
func TestRequireProviderErrorSameSignal(t *testing.T) {
	auth := NewAuth(&fakeProvider{err: errors.New("identity service down")}, nil)

	handler := auth.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Authentication required" {
		t.Errorf("unexpected error message: %q", msg)
	}
}

func TestOptionalAnonymousPasses(t *testing.T) {
	auth := NewAuth(&fakeProvider{err: identity.ErrNoSession}, nil)

	called := false
	handler := auth.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if GetAuthContext(r) != nil {
			t.Error("expected no auth context for anonymous request")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))

	if !called {
		t.Fatal("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestOptionalAuthenticatedAttaches(t *testing.T) {
	auth := NewAuth(&fakeProvider{user: &identity.User{ID: "user-2"}}, nil)

	handler := auth.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx == nil || authCtx.UserID != "user-2" {
			t.Errorf("expected user-2 auth context, got %+v", authCtx)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
