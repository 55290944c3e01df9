// Package rbac answers one question for the pipeline: does this user hold at
// least one of a required set of roles. The role model itself (granting,
// hierarchies, scopes) is owned by the identity platform; this package only
// reads membership.
package rbac

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Store handles role membership lookups
type Store interface {
	// HasAnyRole reports whether userID holds at least one of roles
	HasAnyRole(ctx context.Context, userID string, roles []string) (bool, error)
}

// PostgresStore reads role membership from the user_roles table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres-backed role store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// HasAnyRole reports whether the user holds at least one of the given roles
func (s *PostgresStore) HasAnyRole(ctx context.Context, userID string, roles []string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = $1
			  AND r.name = ANY($2)
			  AND (ur.expires_at IS NULL OR ur.expires_at > NOW())
		)
	`

	var has bool
	err := s.db.QueryRowContext(ctx, query, userID, pq.Array(roles)).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("failed to check role membership: %w", err)
	}

	return has, nil
}
