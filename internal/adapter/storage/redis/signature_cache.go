package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SignatureCache is the fast-path dedup check for offline qr_signatures.
// A cache miss falls through to the ledger's unique index, so Redis loss
// never causes a double-credit, only a slower lookup.
type SignatureCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewSignatureCache creates a Redis-backed signature cache.
func NewSignatureCache(client *goredis.Client, ttl time.Duration) *SignatureCache {
	return &SignatureCache{
		client: client,
		prefix: "qr_signature:",
		ttl:    ttl,
	}
}

// Get returns the ledger entry id recorded for a signature, or "" when the
// signature has not been seen (or has expired from the cache).
func (c *SignatureCache) Get(ctx context.Context, signature string) (string, error) {
	val, err := c.client.Get(ctx, c.prefix+signature).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis signature get: %w", err)
	}
	return val, nil
}

// Set records the entry id that a signature resolved to.
func (c *SignatureCache) Set(ctx context.Context, signature string, entryID string) error {
	if err := c.client.Set(ctx, c.prefix+signature, entryID, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis signature set: %w", err)
	}
	return nil
}
