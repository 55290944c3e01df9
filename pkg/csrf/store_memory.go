package csrf

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process token store for development and tests.
// Production deployments use PostgresStore so concurrent instances share
// one token table.
type MemoryStore struct {
	mu     sync.Mutex
	tokens []Token
}

// NewMemoryStore creates an empty in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// DeleteExpired removes expired tokens for all users
func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tokens[:0]
	for _, t := range s.tokens {
		if t.ExpiresAt.After(now) {
			kept = append(kept, t)
		}
	}
	s.tokens = kept
	return nil
}

// FindValid returns the newest unexpired token for a user, or nil when none exists
func (s *MemoryStore) FindValid(ctx context.Context, userID string, now time.Time) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var newest *Token
	for i := range s.tokens {
		t := &s.tokens[i]
		if t.UserID != userID || !t.ExpiresAt.After(now) {
			continue
		}
		if newest == nil || t.CreatedAt.After(newest.CreatedAt) {
			newest = t
		}
	}
	if newest == nil {
		return nil, nil
	}

	copied := *newest
	return &copied, nil
}

// DeleteForUser removes all tokens for a user
func (s *MemoryStore) DeleteForUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tokens[:0]
	for _, t := range s.tokens {
		if t.UserID != userID {
			kept = append(kept, t)
		}
	}
	s.tokens = kept
	return nil
}

// Insert persists a freshly issued token
func (s *MemoryStore) Insert(ctx context.Context, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = append(s.tokens, *token)
	return nil
}

// CountStats reports store size and per-user presence for diagnostics
func (s *MemoryStore) CountStats(ctx context.Context, userID string) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{TotalTokens: len(s.tokens)}
	for _, t := range s.tokens {
		if t.UserID == userID {
			stats.UserHasToken = true
			break
		}
	}
	return stats, nil
}
