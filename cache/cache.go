// Package cache is the hot tier: a bounded key->bytes cache in front of the
// cold store. Every entry is reconstructable from the cold tier, so losing
// this tier only costs latency, never data.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache miss")

// Cache is the hot-tier capability interface. Implementations are selected by
// configuration and must be safe for concurrent use; values are inserted
// atomically as whole blobs, never partially visible.
type Cache interface {
	// Get returns the cached bytes for key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key as a volatile entry with the given TTL
	// (ttl <= 0 applies the implementation's default). Volatile entries are
	// eligible for LRU eviction under memory pressure.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Pin marks an existing entry non-volatile: exempt from TTL expiry and
	// from eviction pressure until deleted explicitly.
	Pin(ctx context.Context, key string) error
	// Delete removes an entry regardless of volatility.
	Delete(ctx context.Context, key string) error
}
