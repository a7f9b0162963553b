package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
)

// Directory is the user directory the auth core reads credentials from.
// Lookups return store.ErrNotFound for unknown identities.
// UpdateCredentialHash only writes while the stored hash still equals oldHash
// and returns store.ErrNotFound otherwise.
type Directory interface {
	FindByIdentity(ctx context.Context, identity string) (domain.Credential, error)
	FindByID(ctx context.Context, id string) (domain.Credential, error)
	UpdateCredentialHash(ctx context.Context, id, oldHash, newHash string) error
}

// Blacklist records revoked session tokens. Revoke is idempotent and an
// entry never expires before naturalExpiry.
type Blacklist interface {
	Revoke(ctx context.Context, token string, naturalExpiry time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// BlacklistPurger drops blacklist entries whose expiry has passed.
type BlacklistPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
