package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
	"github.com/diegcard-arep/arep-microservicios/pkg/config"
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

// RedisDB wraps a Redis client used for server-side session storage and
// rate limiting. Sessions are stored as hashes so individual fields
// (login state, identity claims, resolved application user) can be
// written independently as the login flow progresses.
//
// All keys use structured naming patterns for organization and monitoring.
type RedisDB struct {
	client *redis.Client // Underlying Redis client with connection pooling
}

// NewRedisDB creates a new Redis connection with automatic retry.
// Connection is verified with exponential backoff before returning,
// so the gateway fails fast on misconfiguration but tolerates a Redis
// container that is still starting up.
//
// Retry configuration:
//   - Max attempts: 5
//   - Initial delay: 100ms
//   - Max delay: 3 seconds
//   - Total timeout: 30 seconds
//
// Parameters:
//   - cfg: Redis configuration including host, port, password, database, and pool size
//
// Returns the connected Redis client or an error if all retries fail.
//
// Example:
//
//	redisDB, err := database.NewRedisDB(&cfg.Redis)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Redis connection failed")
//	}
//	defer redisDB.Close()
func NewRedisDB(cfg *config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// Verify connection with retry
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	retryConfig := utils.DefaultRetryConfig()
	retryConfig.MaxAttempts = 5
	retryConfig.InitialDelay = 100 * time.Millisecond
	retryConfig.MaxDelay = 3 * time.Second

	var lastErr error
	err := utils.Retry(ctx, retryConfig, func() error {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pingCancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			lastErr = err
			log.Warn().Err(err).Msg("Failed to ping Redis, retrying...")
			return err
		}
		return nil
	})

	if err != nil {
		client.Close()
		if lastErr != nil {
			return nil, fmt.Errorf("failed to connect to Redis after retries: %w", lastErr)
		}
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Msg("Successfully connected to Redis")

	return &RedisDB{client: client}, nil
}

// Close closes the Redis connection and releases all resources.
// Should be called when shutting down the application.
func (r *RedisDB) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client for advanced operations.
// Use this when you need Redis operations not covered by the wrapper
// methods, such as handing the client to the cache layer.
func (r *RedisDB) Client() *redis.Client {
	return r.client
}

// Ping checks if Redis is alive and responsive.
// Used by health check endpoints to verify Redis availability.
func (r *RedisDB) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// sessionKey builds the storage key for a session hash.
//
// Key pattern: "session:{sessionID}"
func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// CreateSession writes a new session hash and starts its expiration
// timer. The TTL is fixed at creation and is never refreshed, so a
// session ends at most ttl after login regardless of activity.
//
// Parameters:
//   - ctx: Context for timeout and cancellation
//   - sessionID: Unique session identifier (the cookie references this)
//   - fields: Initial hash fields (login state, device info, timestamps)
//   - ttl: Absolute session lifetime (e.g., 24 hours)
//
// Example:
//
//	err := redisDB.CreateSession(ctx, sessionID, map[string]interface{}{
//	    "state":       state,
//	    "nonce":       nonce,
//	    "device_info": "Chrome 133 · macOS · Desktop",
//	    "created_at":  time.Now().Unix(),
//	}, 24*time.Hour)
func (r *RedisDB) CreateSession(ctx context.Context, sessionID string, fields map[string]interface{}, ttl time.Duration) error {
	key := sessionKey(sessionID)

	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session expiry: %w", err)
	}

	return nil
}

// UpdateSessionFields writes fields into an existing session hash
// without touching its TTL. Used as the login flow progresses: the
// callback stores identity claims and tokens, the first API request
// stores the resolved application user.
//
// Returns models.ErrSessionNotFound if the session has expired or was
// destroyed, so callers never resurrect a dead session by writing to it.
func (r *RedisDB) UpdateSessionFields(ctx context.Context, sessionID string, fields map[string]interface{}) error {
	key := sessionKey(sessionID)

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check session existence: %w", err)
	}
	if exists == 0 {
		return models.ErrSessionNotFound
	}

	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// GetSessionData retrieves all fields of a session hash.
//
// Returns models.ErrSessionNotFound if the session doesn't exist or
// has expired.
//
// Example:
//
//	data, err := redisDB.GetSessionData(ctx, sessionID)
//	if errors.Is(err, models.ErrSessionNotFound) {
//	    // Treat request as anonymous
//	}
func (r *RedisDB) GetSessionData(ctx context.Context, sessionID string) (map[string]string, error) {
	result, err := r.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(result) == 0 {
		return nil, models.ErrSessionNotFound
	}
	return result, nil
}

// DeleteSessionField removes a single field from a session hash.
// Used to clear one-time values (the login state) after they are
// consumed, so a replayed callback cannot match a second time.
func (r *RedisDB) DeleteSessionField(ctx context.Context, sessionID string, field string) error {
	if err := r.client.HDel(ctx, sessionKey(sessionID), field).Err(); err != nil {
		return fmt.Errorf("failed to delete session field: %w", err)
	}
	return nil
}

// DeleteSession removes a session from Redis. Called on logout and
// when a callback fails a security check.
func (r *RedisDB) DeleteSession(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SessionTTL returns the remaining lifetime of a session.
// Returns models.ErrSessionNotFound if the session doesn't exist.
func (r *RedisDB) SessionTTL(ctx context.Context, sessionID string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get session TTL: %w", err)
	}
	if ttl < 0 {
		return 0, models.ErrSessionNotFound
	}
	return ttl, nil
}

// IncrementRateLimit increments the rate limit counter for an IP+endpoint.
// Implements a fixed window rate limiter with automatic expiration.
//
// Key pattern: "ratelimit:{ip}:{endpoint}"
//
// Behavior:
//   - First request: Sets counter to 1 and starts expiry timer
//   - Subsequent requests: Increments counter
//   - After window expires: Counter resets automatically
//
// Returns the current count (including this request).
//
// Example:
//
//	count, err := redisDB.IncrementRateLimit(ctx, "203.0.113.42", "login", time.Minute)
//	if count > 60 {
//	    return errors.New("rate limit exceeded")
//	}
func (r *RedisDB) IncrementRateLimit(ctx context.Context, ip, endpoint string, window time.Duration) (int64, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", ip, endpoint)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	return count, nil
}

// GetRateLimitCount retrieves the current rate limit count without
// incrementing. Useful for exposing remaining quota in headers.
func (r *RedisDB) GetRateLimitCount(ctx context.Context, ip, endpoint string) (int64, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", ip, endpoint)
	count, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rate limit count: %w", err)
	}
	return count, nil
}
