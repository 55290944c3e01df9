package csrf

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Token is one persisted anti-forgery token row.
// Rows are immutable once inserted; they are deleted when expired or when a
// fresh token supersedes them.
type Token struct {
	UserID    string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Stats reports store contents for non-production diagnostics
type Stats struct {
	TotalTokens  int
	UserHasToken bool
}

// Store handles CSRF token persistence
type Store interface {
	// DeleteExpired removes every token with expires_at <= now, for all users
	DeleteExpired(ctx context.Context, now time.Time) error
	// FindValid returns the unexpired token for userID, or nil when none exists
	FindValid(ctx context.Context, userID string, now time.Time) (*Token, error)
	// DeleteForUser removes all tokens for userID
	DeleteForUser(ctx context.Context, userID string) error
	// Insert persists a freshly issued token
	Insert(ctx context.Context, token *Token) error
	// CountStats reports store size and whether userID holds any token
	CountStats(ctx context.Context, userID string) (Stats, error)
}

// PostgresStore persists CSRF tokens in the csrf_tokens table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres-backed token store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DeleteExpired removes expired tokens for all users
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM csrf_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return nil
}

// FindValid returns the newest unexpired token for a user, or nil when none exists
func (s *PostgresStore) FindValid(ctx context.Context, userID string, now time.Time) (*Token, error) {
	query := `
		SELECT user_id, token, created_at, expires_at
		FROM csrf_tokens
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var token Token
	err := s.db.QueryRowContext(ctx, query, userID, now).Scan(
		&token.UserID,
		&token.Token,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	return &token, nil
}

// DeleteForUser removes all tokens for a user
func (s *PostgresStore) DeleteForUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM csrf_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete tokens for user: %w", err)
	}
	return nil
}

// Insert persists a freshly issued token
func (s *PostgresStore) Insert(ctx context.Context, token *Token) error {
	query := `
		INSERT INTO csrf_tokens (user_id, token, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(ctx, query,
		token.UserID,
		token.Token,
		token.CreatedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

// CountStats reports store size and per-user presence for diagnostics
func (s *PostgresStore) CountStats(ctx context.Context, userID string) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE user_id = $1) > 0
		FROM csrf_tokens
	`, userID).Scan(&stats.TotalTokens, &stats.UserHasToken)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count tokens: %w", err)
	}
	return stats, nil
}
