package domain

import "time"

// SessionToken is an issued, signed session token. It is never mutated after
// issue; a new one is minted on refresh.
type SessionToken struct {
	Raw       string
	Subject   string
	Username  string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// BlacklistEntry is a revoked token as stored. Tokens are keyed by their
// SHA-256 fingerprint, never by the raw value.
type BlacklistEntry struct {
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
