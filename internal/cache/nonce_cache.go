package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// NonceCachePrefix is the prefix for seen-nonce keys
	NonceCachePrefix = "login:nonce:"
	// NonceCacheTTL keeps a nonce marked as seen slightly longer than the
	// 30-minute signature window, so a replay can never outlive the mark.
	NonceCacheTTL = 35 * time.Minute
)

// NonceCache is the seen-nonce replay guard for signed scan requests,
// keyed by (sceneId, nonce). Optional: when redis is not configured the
// login service runs without replay protection.
type NonceCache struct {
	client *redis.Client
}

// NewNonceCache creates a NonceCache backed by the provided redis client.
func NewNonceCache(client *redis.Client) *NonceCache {
	return &NonceCache{client: client}
}

// Seen marks the (sceneID, nonce) pair and reports whether it had already
// been used within the TTL. SET NX makes check-and-mark atomic across
// concurrent requests.
func (c *NonceCache) Seen(ctx context.Context, sceneID, nonce string) (bool, error) {
	key := fmt.Sprintf("%s%s:%s", NonceCachePrefix, sceneID, nonce)

	set, err := c.client.SetNX(ctx, key, 1, NonceCacheTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check nonce: %w", err)
	}
	return !set, nil
}
