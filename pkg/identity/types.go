// Package identity resolves the caller behind a request's session credentials.
//
// Every resolution is a server-side round trip to the identity provider; the
// pipeline never trusts a client-asserted claim and never caches a session
// across requests. Implementations of Provider are injected into the auth
// middleware so tests can substitute fakes.
package identity

import "errors"

// ErrNoSession is returned when a request carries no session, an expired
// session, or a session the provider refuses to verify. Callers cannot
// distinguish these cases; the collapse is deliberate so that responses do
// not leak provider-internal detail.
var ErrNoSession = errors.New("identity: no valid session")

// User is the identity resolved for a verified session
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthContext carries the resolved identity through the request context.
// It is built once per request by the auth middleware and is immutable after.
type AuthContext struct {
	UserID string
	User   *User
}
