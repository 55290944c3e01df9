package identity

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCProvider resolves sessions whose cookie holds an OpenID Connect access
// token. Verification happens via the issuer's UserInfo endpoint, which is a
// server-side round trip: a revoked or expired token fails there regardless
// of what the client asserts.
type OIDCProvider struct {
	provider   *oidc.Provider
	cookieName string
}

// OIDCConfig holds the settings needed to discover the OIDC issuer
type OIDCConfig struct {
	IssuerURL  string
	CookieName string
}

// NewOIDCProvider discovers the issuer and returns a provider ready to verify sessions
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	if cfg.IssuerURL == "" {
		return nil, fmt.Errorf("issuer URL is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = SessionCookieName
	}

	return &OIDCProvider{
		provider:   provider,
		cookieName: cookieName,
	}, nil
}

// CurrentUser verifies the access token in the session cookie against the
// issuer's UserInfo endpoint and maps the response to a User
func (p *OIDCProvider) CurrentUser(ctx context.Context, r *http.Request) (*User, error) {
	cookie, err := r.Cookie(p.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cookie.Value,
		TokenType:   "Bearer",
	})

	userInfo, err := p.provider.UserInfo(ctx, tokenSource)
	if err != nil {
		// UserInfo failures cover both revoked tokens and issuer outages;
		// the middleware collapses either into an unauthenticated response.
		return nil, fmt.Errorf("userinfo verification failed: %w", err)
	}

	if userInfo.Subject == "" {
		return nil, fmt.Errorf("userinfo response missing subject")
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := userInfo.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo claims: %w", err)
	}

	return &User{
		ID:    userInfo.Subject,
		Email: claims.Email,
	}, nil
}
