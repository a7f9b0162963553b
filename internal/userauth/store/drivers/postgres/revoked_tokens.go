package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
)

type revokedTokensRepo struct {
	db DBTX
}

func (r *revokedTokensRepo) RevokeToken(ctx context.Context, entry domain.BlacklistEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (token_hash) DO UPDATE
		    SET expires_at = GREATEST(revoked_tokens.expires_at, EXCLUDED.expires_at)`,
		entry.TokenHash,
		entry.ExpiresAt.UTC(),
		entry.CreatedAt.UTC(),
	)
	return err
}

func (r *revokedTokensRepo) IsTokenRevoked(ctx context.Context, tokenHash string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM revoked_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *revokedTokensRepo) DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
