package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	walletCachePrefix  = "wallet:v1:"
	walletCacheTimeout = 2 * time.Second
)

// WalletCache remembers the wallet provisioned for a provider user so a
// repeated verification does not create a second one.
type WalletCache interface {
	Lookup(ctx context.Context, userID string) (map[string]any, bool)
	Store(ctx context.Context, userID string, wallet map[string]any)
}

type noopWalletCache struct{}

func (noopWalletCache) Lookup(context.Context, string) (map[string]any, bool) { return nil, false }
func (noopWalletCache) Store(context.Context, string, map[string]any)         {}

type memoryEntry struct {
	wallet  map[string]any
	expires time.Time
}

// MemoryWalletCache keeps wallets in process for ttl. It serves single
// instance deployments that run without Redis.
type MemoryWalletCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	storage map[string]memoryEntry
}

// NewMemoryWalletCache returns an empty in-process cache.
func NewMemoryWalletCache(ttl time.Duration) *MemoryWalletCache {
	return &MemoryWalletCache{ttl: ttl, now: time.Now, storage: make(map[string]memoryEntry)}
}

// Lookup returns the cached wallet for userID.
func (c *MemoryWalletCache) Lookup(_ context.Context, userID string) (map[string]any, bool) {
	c.mu.RLock()
	entry, ok := c.storage[userID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && !c.now().Before(entry.expires) {
		c.mu.Lock()
		delete(c.storage, userID)
		c.mu.Unlock()
		return nil, false
	}
	return entry.wallet, true
}

// Store records wallet for userID.
func (c *MemoryWalletCache) Store(_ context.Context, userID string, wallet map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storage[userID] = memoryEntry{wallet: wallet, expires: c.now().Add(c.ttl)}
}

// RedisWalletCache keeps wallets in Redis for ttl. Store errors are logged
// and never fail the request.
type RedisWalletCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisWalletCache returns a cache backed by client.
func NewRedisWalletCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisWalletCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisWalletCache{client: client, ttl: ttl, logger: logger}
}

// Lookup returns the cached wallet for userID.
func (c *RedisWalletCache) Lookup(ctx context.Context, userID string) (map[string]any, bool) {
	ctx, cancel := context.WithTimeout(ctx, walletCacheTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, walletCachePrefix+userID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("wallet cache lookup failed", slog.String("user_id", userID), slog.Any("error", err))
		}
		return nil, false
	}

	var wallet map[string]any
	if err := json.Unmarshal(raw, &wallet); err != nil {
		c.logger.Warn("wallet cache entry unreadable", slog.String("user_id", userID), slog.Any("error", err))
		return nil, false
	}
	return wallet, true
}

// Store records wallet for userID.
func (c *RedisWalletCache) Store(ctx context.Context, userID string, wallet map[string]any) {
	payload, err := json.Marshal(wallet)
	if err != nil {
		c.logger.Warn("wallet cache encode failed", slog.String("user_id", userID), slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, walletCacheTimeout)
	defer cancel()

	if err := c.client.Set(ctx, walletCachePrefix+userID, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("wallet cache store failed", slog.String("user_id", userID), slog.Any("error", err))
	}
}
