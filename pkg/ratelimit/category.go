// Package ratelimit tracks call frequency per (caller key, operation category)
// and rejects callers that exceed a category-specific quota.
//
// The caller key is the resolved user id when the request is authenticated
// and a network-origin identifier otherwise; the pipeline consults the
// limiter once for each, so both credential stuffing and authenticated abuse
// across many vantage points are covered.
package ratelimit

import "time"

// Category selects a quota profile for an operation class
type Category string

const (
	// CategoryAuth covers sign-in and session endpoints (strictest)
	CategoryAuth Category = "auth"
	// CategoryGeneral covers ordinary CRUD traffic
	CategoryGeneral Category = "general"
	// CategoryUpload covers file upload endpoints
	CategoryUpload Category = "upload"
	// CategoryChat covers chat message endpoints
	CategoryChat Category = "chat"
)

// Profile defines one category's fixed-window quota
type Profile struct {
	// Limit is the max requests allowed per window
	Limit int
	// Window is the fixed window length
	Window time.Duration
}

// DefaultProfiles returns the per-category quotas.
// Auth and upload are stricter than general traffic because they carry the
// highest abuse risk (credential stuffing, storage exhaustion).
func DefaultProfiles() map[Category]Profile {
	return map[Category]Profile{
		CategoryAuth:    {Limit: 10, Window: 15 * time.Minute},
		CategoryUpload:  {Limit: 20, Window: time.Hour},
		CategoryChat:    {Limit: 60, Window: time.Minute},
		CategoryGeneral: {Limit: 120, Window: time.Minute},
	}
}
