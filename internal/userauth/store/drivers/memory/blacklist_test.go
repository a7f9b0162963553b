package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBlacklist(t *testing.T) {
	ctx := context.Background()
	bl := NewBlacklist()
	now := time.Now()

	revoked, err := bl.IsRevoked(ctx, "a")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "a", now.Add(time.Hour)))
	require.NoError(t, bl.Revoke(ctx, "a", now.Add(time.Minute)))
	require.NoError(t, bl.Revoke(ctx, "b", now.Add(-time.Minute)))
	require.Equal(t, 2, bl.Len())

	revoked, err = bl.IsRevoked(ctx, "a")
	require.NoError(t, err)
	require.True(t, revoked)

	n, err := bl.PurgeExpired(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n, "a keeps its one hour expiry, b is gone")

	revoked, err = bl.IsRevoked(ctx, "a")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestBlacklistConcurrent(t *testing.T) {
	ctx := context.Background()
	bl := NewBlacklist()
	exp := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bl.Revoke(ctx, "same", exp)
			_, _ = bl.IsRevoked(ctx, "same")
		}()
	}
	wg.Wait()

	require.Equal(t, 1, bl.Len())
}
