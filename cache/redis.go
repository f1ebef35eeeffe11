package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/picvault/picvault-service/config"
)

const redisKeyPrefix = "img:"

// Redis backs the hot tier with a Redis instance. Entries written with a TTL
// are volatile and reclaimed by Redis under volatile-lru; pinned entries have
// their TTL removed, which exempts them from that policy.
type Redis struct {
	client     *redis.Client
	defaultTTL time.Duration
}

var _ Cache = (*Redis)(nil)

func NewRedis(cfg *config.EnvConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	r := &Redis{client: client, defaultTTL: cfg.CacheTier.DefaultTTL}
	if err := r.applyTierConfig(context.Background(), cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// applyTierConfig pushes the runtime cache-tier options down to the server:
// memory bound, eviction policy, and cold-durability mode.
func (r *Redis) applyTierConfig(ctx context.Context, cfg *config.EnvConfig) error {
	if cfg.CacheTier.EvictionPolicy != "lru" {
		return fmt.Errorf("unrecognized eviction policy %q", cfg.CacheTier.EvictionPolicy)
	}
	if err := r.client.ConfigSet(ctx, "maxmemory", strconv.FormatInt(cfg.CacheTier.MaxMemory, 10)).Err(); err != nil {
		return fmt.Errorf("set maxmemory: %w", err)
	}
	if err := r.client.ConfigSet(ctx, "maxmemory-policy", "volatile-lru").Err(); err != nil {
		return fmt.Errorf("set maxmemory-policy: %w", err)
	}
	appendonly := "no"
	if cfg.CacheTier.PersistenceMode == "appendonly" {
		appendonly = "yes"
	}
	if err := r.client.ConfigSet(ctx, "appendonly", appendonly).Err(); err != nil {
		return fmt.Errorf("set appendonly: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return data, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return r.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err()
}

func (r *Redis) Pin(ctx context.Context, key string) error {
	ok, err := r.client.Persist(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return err
	}
	if !ok {
		// Either the key is absent or it already has no TTL; distinguish so
		// pinning a missing entry is reported.
		exists, err := r.client.Exists(ctx, redisKeyPrefix+key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return ErrMiss
		}
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisKeyPrefix+key).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
