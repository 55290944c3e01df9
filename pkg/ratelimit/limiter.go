package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Decision is the outcome of one rate-limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is how long the caller should wait before retrying.
	// Only meaningful when Allowed is false.
	RetryAfter time.Duration
}

// Limiter checks whether a caller may proceed for a given operation category
type Limiter interface {
	Allow(ctx context.Context, key string, category Category) (Decision, error)
}

// FixedWindowLimiter implements in-memory fixed-window rate limiting.
// Counters are kept per (key, category); a window starts on the first call
// and rolls over after the profile's window length, resetting the count.
type FixedWindowLimiter struct {
	profiles map[Category]Profile
	mu       sync.Mutex
	windows  map[string]*window
	now      func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewFixedWindowLimiter creates an in-memory limiter with the given profiles
func NewFixedWindowLimiter(profiles map[Category]Profile) *FixedWindowLimiter {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &FixedWindowLimiter{
		profiles: profiles,
		windows:  make(map[string]*window),
		now:      time.Now,
	}
}

// Allow increments the counter for (key, category) and reports whether the
// call is within quota. The increment-and-compare runs under the lock, so
// concurrent bursts cannot undercount.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, category Category) (Decision, error) {
	profile, ok := l.profiles[category]
	if !ok {
		return Decision{}, fmt.Errorf("unknown rate limit category: %s", category)
	}

	bucketKey := string(category) + ":" + key
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[bucketKey]
	if !exists || now.Sub(w.start) >= profile.Window {
		w = &window{start: now}
		l.windows[bucketKey] = w
	}

	if w.count >= profile.Limit {
		return Decision{
			Allowed:    false,
			Limit:      profile.Limit,
			Remaining:  0,
			RetryAfter: w.start.Add(profile.Window).Sub(now),
		}, nil
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     profile.Limit,
		Remaining: profile.Limit - w.count,
	}, nil
}

// Cleanup removes windows that have rolled over (should be called periodically)
func (l *FixedWindowLimiter) Cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		category := Category(keyCategory(key))
		profile, ok := l.profiles[category]
		if !ok || now.Sub(w.start) >= profile.Window {
			delete(l.windows, key)
		}
	}
}

// StartCleanup starts a background goroutine to drop stale windows
func (l *FixedWindowLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

func keyCategory(bucketKey string) string {
	for i := 0; i < len(bucketKey); i++ {
		if bucketKey[i] == ':' {
			return bucketKey[:i]
		}
	}
	return bucketKey
}
