package jwtx

import (
	"errors"
	"time"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures common expectations used by verifiers.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Now is the clock used for exp checks. Defaults to time.Now.
	Now func() time.Time
}

// Verification failures. Every error returned by a Verifier wraps exactly
// one of ErrMalformed, ErrInvalidSig or ErrExpired.
var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrEmptySecret = errors.New("jwtx: empty signing secret")
)
