package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakeStore) HasAnyRole(ctx context.Context, userID string, roles []string) (bool, error) {
	f.calls++
	return f.allowed, f.err
}

func TestCheckerCachesWithinTTL(t *testing.T) {
	store := &fakeStore{allowed: true}
	checker, err := NewChecker(store)
	require.NoError(t, err)

	now := time.Now()
	checker.now = func() time.Time { return now }

	allowed, err := checker.HasAnyRole(context.Background(), "user-1", []string{"admin"})
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, store.calls)

	// Second check within the TTL is served from cache
	allowed, err = checker.HasAnyRole(context.Background(), "user-1", []string{"admin"})
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, store.calls)

	// Past the TTL the store is consulted again
	now = now.Add(cacheTTL + time.Second)
	allowed, err = checker.HasAnyRole(context.Background(), "user-1", []string{"admin"})
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2, store.calls)
}

func TestCheckerDistinctRoleSetsMissCache(t *testing.T) {
	store := &fakeStore{allowed: false}
	checker, err := NewChecker(store)
	require.NoError(t, err)

	_, err = checker.HasAnyRole(context.Background(), "user-1", []string{"admin"})
	require.NoError(t, err)
	_, err = checker.HasAnyRole(context.Background(), "user-1", []string{"editor"})
	require.NoError(t, err)

	assert.Equal(t, 2, store.calls)
}

func TestCheckerStoreErrorNotCached(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	checker, err := NewChecker(store)
	require.NoError(t, err)

	_, err = checker.HasAnyRole(context.Background(), "user-1", []string{"admin"})
	assert.Error(t, err)

	store.err = nil
	store.allowed = true

	allowed, err := checker.HasAnyRole(context.Background(), "user-1", []string{"admin"})
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2, store.calls)
}
