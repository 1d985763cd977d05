package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryWalletCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryWalletCache(time.Hour)
	cache.now = func() time.Time { return now }

	_, ok := cache.Lookup(ctx, "did:privy:u1")
	assert.False(t, ok)

	cache.Store(ctx, "did:privy:u1", map[string]any{"address": "0xabc"})
	wallet, ok := cache.Lookup(ctx, "did:privy:u1")
	require.True(t, ok)
	assert.Equal(t, "0xabc", wallet["address"])

	_, ok = cache.Lookup(ctx, "did:privy:u2")
	assert.False(t, ok)

	now = now.Add(time.Hour)
	_, ok = cache.Lookup(ctx, "did:privy:u1")
	assert.False(t, ok)
	assert.Empty(t, cache.storage)
}
