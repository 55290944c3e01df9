package rbac

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheTTL bounds how stale a cached membership decision may be. Role grants
// change rarely; a short TTL keeps revocation latency acceptable without
// hitting the database on every request.
const cacheTTL = 30 * time.Second

// cacheSize bounds the number of cached (user, roles) decisions
const cacheSize = 4096

type cacheEntry struct {
	allowed   bool
	expiresAt time.Time
}

// Checker answers role membership questions with a small LRU cache in front
// of the store
type Checker struct {
	store Store
	cache *lru.Cache[string, cacheEntry]
	now   func() time.Time
}

// NewChecker creates a checker over the given store
func NewChecker(store Store) (*Checker, error) {
	cache, err := lru.New[string, cacheEntry](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Checker{
		store: store,
		cache: cache,
		now:   time.Now,
	}, nil
}

// HasAnyRole reports whether the user holds at least one of the given roles,
// serving repeated checks from cache within the TTL window
func (c *Checker) HasAnyRole(ctx context.Context, userID string, roles []string) (bool, error) {
	key := cacheKey(userID, roles)
	now := c.now()

	if entry, ok := c.cache.Get(key); ok && entry.expiresAt.After(now) {
		return entry.allowed, nil
	}

	allowed, err := c.store.HasAnyRole(ctx, userID, roles)
	if err != nil {
		return false, err
	}

	c.cache.Add(key, cacheEntry{
		allowed:   allowed,
		expiresAt: now.Add(cacheTTL),
	})

	return allowed, nil
}

func cacheKey(userID string, roles []string) string {
	return userID + "|" + strings.Join(roles, ",")
}
