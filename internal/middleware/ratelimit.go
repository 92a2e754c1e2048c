package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/diegcard-arep/arep-microservicios/internal/database"
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

// RateLimiter implements distributed rate limiting using Redis.
// Protects the login and registration endpoints from abuse by limiting
// the number of requests per IP address within a time window.
//
// Redis key pattern: "ratelimit:{ip}:{endpoint}" with TTL equal to window
//
// On limit exceeded:
//   - Returns 429 Too Many Requests
//   - Sets Retry-After header
//   - Logs the violation for monitoring
type RateLimiter struct {
	redis          *database.RedisDB // Redis for distributed counters
	requestsPerMin int               // Maximum requests allowed per window
	window         time.Duration     // Time window for rate limiting
}

// NewRateLimiter creates a rate limiter.
//
// Example:
//
//	// Allow 60 requests per minute
//	limiter := middleware.NewRateLimiter(redisDB, 60, time.Minute)
//	r.With(limiter.Limit("login")).Get("/login", authHandler.Login)
func NewRateLimiter(redis *database.RedisDB, requestsPerMin int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:          redis,
		requestsPerMin: requestsPerMin,
		window:         window,
	}
}

// Limit creates middleware that applies rate limiting to an endpoint.
// Each endpoint gets an independent counter through its identifier.
//
// Rate limit headers:
//   - X-RateLimit-Limit: Maximum requests allowed per window
//   - X-RateLimit-Remaining: Requests remaining in current window
//   - Retry-After: Seconds until rate limit resets (on 429 only)
//
// On Redis errors the request is allowed through; a metrics outage
// must not lock users out.
//
// Example:
//
//	limiter := middleware.NewRateLimiter(redisDB, 60, time.Minute)
//	r.With(limiter.Limit("login")).Get("/login", authHandler.Login)
//	r.With(limiter.Limit("register")).Post("/api/users/register", userHandler.Register)
func (rl *RateLimiter) Limit(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ExtractClientIP(r)

			count, err := rl.redis.IncrementRateLimit(r.Context(), ip, endpoint, rl.window)
			if err != nil {
				log.Error().Err(err).Str("ip", ip).Msg("Failed to check rate limit")
				// Continue on error to avoid blocking legitimate requests
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(rl.requestsPerMin) {
				log.Warn().
					Str("ip", ip).
					Str("endpoint", endpoint).
					Int64("count", count).
					Msg("Rate limit exceeded")

				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.requestsPerMin))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))

				utils.RespondWithError(w, r, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
				return
			}

			remaining := rl.requestsPerMin - int(count)
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.requestsPerMin))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

			next.ServeHTTP(w, r)
		})
	}
}
