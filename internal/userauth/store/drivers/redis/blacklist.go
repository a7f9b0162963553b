// Package redis keeps revoked token fingerprints in Redis, letting key TTLs
// do the purging.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/userauth/pkg/cryptox"
	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "userauth:revoked:"

// revokeScript writes the key unless an existing entry already outlives the
// requested TTL, so an entry's expiry only ever grows.
var revokeScript = redis.NewScript(`
local current = redis.call('PTTL', KEYS[1])
if current < tonumber(ARGV[1]) then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[1])
	return 1
end
return 0
`)

// Blacklist is a Redis-backed token blacklist.
type Blacklist struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewBlacklist(client redis.UniversalClient) *Blacklist {
	return &Blacklist{client: client, now: time.Now}
}

// Revoke marks token revoked until naturalExpiry. Tokens already past their
// expiry are skipped since validation rejects them anyway.
func (b *Blacklist) Revoke(ctx context.Context, token string, naturalExpiry time.Time) error {
	now := b.now()
	ttl := naturalExpiry.Sub(now)
	if ttl <= 0 {
		return nil
	}
	ms := ttl.Milliseconds()
	if ttl%time.Millisecond != 0 {
		ms++
	}

	key := revokedPrefix + cryptox.FingerprintToken(token)
	if err := revokeScript.Run(ctx, b.client, []string{key}, ms, now.Unix()).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, revokedPrefix+cryptox.FingerprintToken(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// PurgeExpired is a no-op; Redis expires entries on its own.
func (b *Blacklist) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (b *Blacklist) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
