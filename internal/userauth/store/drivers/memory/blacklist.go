// Package memory holds an in-process token blacklist for single-node and
// test deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/userauth/pkg/cryptox"
)

type Blacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewBlacklist() *Blacklist {
	return &Blacklist{entries: make(map[string]time.Time)}
}

// Revoke records token until naturalExpiry, extending an existing entry
// when the new expiry is later.
func (b *Blacklist) Revoke(_ context.Context, token string, naturalExpiry time.Time) error {
	fp := cryptox.FingerprintToken(token)

	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.entries[fp]; !ok || naturalExpiry.After(cur) {
		b.entries[fp] = naturalExpiry
	}
	return nil
}

func (b *Blacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	fp := cryptox.FingerprintToken(token)

	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[fp]
	return ok, nil
}

// PurgeExpired drops entries that expired before now.
func (b *Blacklist) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int64
	for fp, exp := range b.entries {
		if exp.Before(now) {
			delete(b.entries, fp)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries.
func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
