// Package cache provides a small Redis-backed caching layer with JSON
// serialization. The gateway uses it to memoize read-mostly upstream
// lookups (public user profiles) with short TTLs so repeated profile
// views do not hammer the user service.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache wraps a Redis client with JSON marshaling for arbitrary Go structs.
type Cache struct {
	client *redis.Client
}

// NewCache creates a cache instance backed by the given Redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client: client,
	}
}

// Get retrieves a value from cache and unmarshals it into target.
// Returns ErrCacheMiss if the key does not exist or has expired.
// The target must be a pointer.
//
// Example:
//
//	var profile models.User
//	err := cache.Get(ctx, cache.ProfileKey(username), &profile)
//	if err == cache.ErrCacheMiss {
//	    // Load from the user service
//	}
func (c *Cache) Get(ctx context.Context, key string, target interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		log.Error().Err(err).Str("key", key).Msg("Failed to get from cache")
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to unmarshal cached data")
		return fmt.Errorf("unmarshal error: %w", err)
	}

	return nil
}

// Set stores a value in cache with the specified TTL.
// The value is marshaled to JSON before writing.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to marshal data for cache")
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to set cache")
		return fmt.Errorf("cache set error: %w", err)
	}

	log.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached data")
	return nil
}

// Delete removes one or more keys from cache.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Error().Err(err).Strs("keys", keys).Msg("Failed to delete from cache")
		return fmt.Errorf("cache delete error: %w", err)
	}

	log.Debug().Strs("keys", keys).Msg("Deleted from cache")
	return nil
}

// GetOrSet implements the cache-aside pattern. It attempts to get from
// cache, and on miss executes the loader and caches its result. If the
// loader returns an error nothing is cached and the error is returned.
//
// Example:
//
//	var profile models.User
//	err := cache.GetOrSet(ctx, cache.ProfileKey(username), time.Minute, &profile, func() (interface{}, error) {
//	    return users.GetByUsername(ctx, username)
//	})
func (c *Cache) GetOrSet(ctx context.Context, key string, ttl time.Duration, target interface{}, loader func() (interface{}, error)) error {
	err := c.Get(ctx, key, target)
	if err == nil {
		log.Debug().Str("key", key).Msg("Cache hit")
		return nil
	}

	if err != ErrCacheMiss {
		return err
	}

	log.Debug().Str("key", key).Msg("Cache miss, loading data")

	data, err := loader()
	if err != nil {
		return fmt.Errorf("loader error: %w", err)
	}

	if err := c.Set(ctx, key, data, ttl); err != nil {
		// Log but don't fail - we have the data
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache loaded data")
	}

	// Round-trip through JSON to populate target regardless of the
	// loader's concrete return type.
	bytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := json.Unmarshal(bytes, target); err != nil {
		return fmt.Errorf("unmarshal error: %w", err)
	}

	return nil
}
