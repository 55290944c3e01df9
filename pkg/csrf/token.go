// Package csrf issues, persists, and validates anti-forgery tokens for
// session-cookie-authenticated, state-changing requests.
//
// Tokens are 256-bit random values, hex encoded, scoped to one user with at
// most one valid token per user at a time. A token lives until its expiry
// (one hour); it is not burned on successful validation, so clients do not
// have to re-fetch after every mutation.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the number of random bytes per token (32 bytes = 256 bits)
const TokenBytes = 32

// GenerateToken creates a new cryptographically random token.
// Format: hex(32 random bytes), 64 lowercase hex characters.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// TokensEqual compares two tokens in constant time.
// The length check runs first; equal-length inputs are compared byte-wise
// with a timing-safe primitive so response time does not reveal the position
// of the first mismatch.
func TokensEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
