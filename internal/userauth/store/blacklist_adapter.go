package store

import (
	"context"
	"time"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
	"github.com/aussiebroadwan/userauth/pkg/cryptox"
)

// BlacklistAdapter implements the token blacklist on the revoked_tokens
// table. Raw tokens are fingerprinted before they reach the database, and
// the insert-or-extend is a single statement so concurrent revokes of the
// same token rely on the database for atomicity.
type BlacklistAdapter struct {
	store Store
	now   func() time.Time
}

// NewBlacklistAdapter creates a database-backed blacklist.
func NewBlacklistAdapter(store Store) *BlacklistAdapter {
	return &BlacklistAdapter{store: store, now: time.Now}
}

// Revoke records token as revoked until at least naturalExpiry.
func (a *BlacklistAdapter) Revoke(ctx context.Context, token string, naturalExpiry time.Time) error {
	return a.store.RevokedTokens().RevokeToken(ctx, domain.BlacklistEntry{
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: naturalExpiry,
		CreatedAt: a.now(),
	})
}

// IsRevoked reports whether token has been revoked.
func (a *BlacklistAdapter) IsRevoked(ctx context.Context, token string) (bool, error) {
	return a.store.RevokedTokens().IsTokenRevoked(ctx, cryptox.FingerprintToken(token))
}

// PurgeExpired drops entries whose expiry has passed.
func (a *BlacklistAdapter) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return a.store.RevokedTokens().DeleteExpiredRevokedTokens(ctx, now)
}
