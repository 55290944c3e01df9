package ratelimit

import (
	"context"
	"testing"
	"time"
)

func newTestLimiter(profiles map[Category]Profile) (*FixedWindowLimiter, *time.Time) {
	limiter := NewFixedWindowLimiter(profiles)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestFixedWindowLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	profiles := map[Category]Profile{
		CategoryGeneral: {Limit: 3, Window: time.Minute},
	}
	limiter, _ := newTestLimiter(profiles)

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(ctx, "user-1", CategoryGeneral)
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("call %d rejected, want allowed", i+1)
		}
		if decision.Remaining != 3-(i+1) {
			t.Errorf("call %d remaining = %d, want %d", i+1, decision.Remaining, 3-(i+1))
		}
	}

	// The (N+1)-th call in the same window is rejected
	decision, err := limiter.Allow(ctx, "user-1", CategoryGeneral)
	if err != nil {
		t.Fatalf("Allow returned error: %v", err)
	}
	if decision.Allowed {
		t.Error("4th call allowed, want rejected")
	}
	if decision.RetryAfter <= 0 {
		t.Error("rejection carries no retry hint")
	}
}

func TestFixedWindowLimiter_WindowRollover(t *testing.T) {
	ctx := context.Background()
	profiles := map[Category]Profile{
		CategoryGeneral: {Limit: 1, Window: time.Minute},
	}
	limiter, now := newTestLimiter(profiles)

	if d, _ := limiter.Allow(ctx, "user-1", CategoryGeneral); !d.Allowed {
		t.Fatal("first call rejected")
	}
	if d, _ := limiter.Allow(ctx, "user-1", CategoryGeneral); d.Allowed {
		t.Fatal("second call in exhausted window allowed")
	}

	*now = now.Add(time.Minute)

	// First call in the new window succeeds even though the previous window
	// was exhausted
	if d, _ := limiter.Allow(ctx, "user-1", CategoryGeneral); !d.Allowed {
		t.Error("first call in fresh window rejected")
	}
}

func TestFixedWindowLimiter_KeysIsolated(t *testing.T) {
	ctx := context.Background()
	profiles := map[Category]Profile{
		CategoryGeneral: {Limit: 1, Window: time.Minute},
	}
	limiter, _ := newTestLimiter(profiles)

	if d, _ := limiter.Allow(ctx, "user-1", CategoryGeneral); !d.Allowed {
		t.Fatal("first caller rejected")
	}
	if d, _ := limiter.Allow(ctx, "user-2", CategoryGeneral); !d.Allowed {
		t.Error("second caller rejected by first caller's quota")
	}
}

func TestFixedWindowLimiter_CategoriesIsolated(t *testing.T) {
	ctx := context.Background()
	profiles := map[Category]Profile{
		CategoryAuth:    {Limit: 1, Window: time.Minute},
		CategoryGeneral: {Limit: 1, Window: time.Minute},
	}
	limiter, _ := newTestLimiter(profiles)

	if d, _ := limiter.Allow(ctx, "user-1", CategoryAuth); !d.Allowed {
		t.Fatal("auth call rejected")
	}
	if d, _ := limiter.Allow(ctx, "user-1", CategoryGeneral); !d.Allowed {
		t.Error("general call rejected by auth quota")
	}
}

func TestFixedWindowLimiter_UnknownCategory(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(nil)

	if _, err := limiter.Allow(ctx, "user-1", Category("bogus")); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestFixedWindowLimiter_Cleanup(t *testing.T) {
	ctx := context.Background()
	profiles := map[Category]Profile{
		CategoryGeneral: {Limit: 5, Window: time.Minute},
	}
	limiter, now := newTestLimiter(profiles)

	limiter.Allow(ctx, "user-1", CategoryGeneral)
	limiter.Allow(ctx, "user-2", CategoryGeneral)

	if len(limiter.windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(limiter.windows))
	}

	*now = now.Add(2 * time.Minute)
	limiter.Cleanup()

	if len(limiter.windows) != 0 {
		t.Errorf("expected 0 windows after cleanup, got %d", len(limiter.windows))
	}
}

func TestDefaultProfiles(t *testing.T) {
	profiles := DefaultProfiles()

	for _, category := range []Category{CategoryAuth, CategoryGeneral, CategoryUpload, CategoryChat} {
		profile, ok := profiles[category]
		if !ok {
			t.Fatalf("missing profile for category %s", category)
		}
		if profile.Limit <= 0 || profile.Window <= 0 {
			t.Errorf("profile for %s has non-positive quota", category)
		}
	}

	// Auth must be stricter than general traffic
	auth := profiles[CategoryAuth]
	general := profiles[CategoryGeneral]
	if float64(auth.Limit)/auth.Window.Seconds() >= float64(general.Limit)/general.Window.Seconds() {
		t.Error("auth quota should be stricter than general quota")
	}
}
