package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the opaque session credential
const SessionCookieName = "session"

// Provider verifies the session attached to a request and resolves the caller.
//
// CurrentUser must perform a server-side verification (not merely decode a
// client-trusted claim) and return ErrNoSession when no valid session exists.
type Provider interface {
	CurrentUser(ctx context.Context, r *http.Request) (*User, error)
}

// HTTPProvider resolves sessions against the identity service's verification
// endpoint. The session cookie is forwarded as-is; the identity service owns
// the session store and is the only party that can tell a live session from
// a revoked one.
type HTTPProvider struct {
	baseURL    string
	cookieName string
	client     *http.Client
}

// NewHTTPProvider creates a provider backed by the identity service at baseURL
func NewHTTPProvider(baseURL string, cookieName string) *HTTPProvider {
	if cookieName == "" {
		cookieName = SessionCookieName
	}
	return &HTTPProvider{
		baseURL:    baseURL,
		cookieName: cookieName,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// CurrentUser calls the identity service's verify endpoint with the request's
// session cookie and returns the resolved user
func (p *HTTPProvider) CurrentUser(ctx context.Context, r *http.Request) (*User, error) {
	cookie, err := r.Cookie(p.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/session/verify", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: p.cookieName, Value: cookie.Value})

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, ErrNoSession
	default:
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("identity service returned empty user id")
	}

	return &user, nil
}
