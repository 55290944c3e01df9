package csrf

import (
	"context"
	"fmt"
	"time"
)

// TokenTTL is how long an issued token stays valid
const TokenTTL = time.Hour

// Manager owns the token lifecycle: absent -> issued -> valid -> expired -> swept.
// Expired rows are swept lazily at the start of every operation, so validation
// can never observe an expired row as valid.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a token manager over the given store
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
	}
}

// Token returns the caller's current anti-forgery token, issuing a fresh one
// only when no unexpired token exists. Issuance within the expiry window is
// idempotent: the client keeps whatever token it already holds.
func (m *Manager) Token(ctx context.Context, userID string) (string, error) {
	now := m.now()

	if err := m.store.DeleteExpired(ctx, now); err != nil {
		return "", err
	}

	existing, err := m.store.FindValid(ctx, userID, now)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.Token, nil
	}

	value, err := GenerateToken()
	if err != nil {
		return "", err
	}

	// Delete-then-insert keeps the one-valid-token-per-user invariant even
	// when two requests race on a brand-new user: the second issuance
	// supersedes the first rather than leaving two live rows.
	if err := m.store.DeleteForUser(ctx, userID); err != nil {
		return "", err
	}

	token := &Token{
		UserID:    userID,
		Token:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(TokenTTL),
	}
	if err := m.store.Insert(ctx, token); err != nil {
		return "", fmt.Errorf("failed to persist token: %w", err)
	}

	return value, nil
}

// Validate reports whether the supplied token matches the stored unexpired
// token for the user. A missing row and a mismatched token are indistinguishable
// to the caller. The comparison is constant-time.
func (m *Manager) Validate(ctx context.Context, userID, supplied string) (bool, error) {
	now := m.now()

	if err := m.store.DeleteExpired(ctx, now); err != nil {
		return false, err
	}

	stored, err := m.store.FindValid(ctx, userID, now)
	if err != nil {
		return false, err
	}
	if stored == nil {
		return false, nil
	}

	return TokensEqual(stored.Token, supplied), nil
}

// Stats exposes store contents for non-production diagnostics only
func (m *Manager) Stats(ctx context.Context, userID string) (Stats, error) {
	return m.store.CountStats(ctx, userID)
}
