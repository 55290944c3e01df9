package rbac

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreHasAnyRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", pq.Array([]string{"admin", "editor"})).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	has, err := store.HasAnyRole(context.Background(), "user-1", []string{"admin", "editor"})
	require.NoError(t, err)
	assert.True(t, has)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreHasAnyRoleNoMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", pq.Array([]string{"admin"})).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	has, err := store.HasAnyRole(context.Background(), "user-1", []string{"admin"})
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPostgresStoreHasAnyRoleEmptyRoles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	// No roles means no query at all
	has, err := store.HasAnyRole(context.Background(), "user-1", nil)
	require.NoError(t, err)
	assert.False(t, has)

	assert.NoError(t, mock.ExpectationsWereMet())
}
