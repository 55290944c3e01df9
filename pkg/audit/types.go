// Package audit records security-relevant pipeline outcomes (rejected
// sessions, failed token validations, throttled callers, denied role checks)
// so abuse investigations have a queryable trail.
package audit

import "time"

// EventType represents the category of security event
type EventType string

const (
	// EventAuthRejected is an unauthenticated request to a protected route
	EventAuthRejected EventType = "auth.rejected"

	// EventForbidden is a 403: a failed CSRF validation or a denied role check
	EventForbidden EventType = "request.forbidden"

	// EventRateLimited is a throttled request
	EventRateLimited EventType = "ratelimit.rejected"
)

// Event is one recorded security event. Identity is resolved deeper in the
// pipeline than the recorder sits and context values only flow inward, so
// events carry the network identity and request ID; investigations join back
// to a caller through the request ID in the structured logs.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"eventType"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"statusCode"`
}
