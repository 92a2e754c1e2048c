package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diegcard-arep/arep-microservicios/internal/database"
	"github.com/diegcard-arep/arep-microservicios/internal/testutil"
)

func setupRateLimiter(t *testing.T, requestsPerMin int) (*RateLimiter, *database.RedisDB, func(d time.Duration)) {
	t.Helper()

	mr, cleanup := testutil.SetupMiniRedis(t)
	redisDB := testutil.NewTestRedisDB(t, mr)
	t.Cleanup(func() {
		cleanup()
		redisDB.Close()
	})

	return NewRateLimiter(redisDB, requestsPerMin, time.Minute), redisDB, mr.FastForward
}

func limitedRequest(limiter *RateLimiter, endpoint, ip string) *httptest.ResponseRecorder {
	handler := limiter.Limit(endpoint)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/login", nil)
	r.Header.Set("X-Forwarded-For", ip)
	handler.ServeHTTP(w, r)
	return w
}

func TestRateLimit_Middleware(t *testing.T) {
	t.Run("allows requests under the limit", func(t *testing.T) {
		limiter, _, _ := setupRateLimiter(t, 3)

		for i := 0; i < 3; i++ {
			w := limitedRequest(limiter, "login", testutil.IPAddresses.Public)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("rejects requests over the limit with headers", func(t *testing.T) {
		limiter, _, _ := setupRateLimiter(t, 2)

		limitedRequest(limiter, "login", testutil.IPAddresses.Public)
		limitedRequest(limiter, "login", testutil.IPAddresses.Public)
		w := limitedRequest(limiter, "login", testutil.IPAddresses.Public)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
	})

	t.Run("counts IPs independently", func(t *testing.T) {
		limiter, _, _ := setupRateLimiter(t, 1)

		assert.Equal(t, http.StatusOK, limitedRequest(limiter, "login", "198.51.100.1").Code)
		assert.Equal(t, http.StatusTooManyRequests, limitedRequest(limiter, "login", "198.51.100.1").Code)
		assert.Equal(t, http.StatusOK, limitedRequest(limiter, "login", "198.51.100.2").Code)
	})

	t.Run("counts endpoints independently", func(t *testing.T) {
		limiter, _, _ := setupRateLimiter(t, 1)

		assert.Equal(t, http.StatusOK, limitedRequest(limiter, "login", testutil.IPAddresses.Private).Code)
		assert.Equal(t, http.StatusTooManyRequests, limitedRequest(limiter, "login", testutil.IPAddresses.Private).Code)
		assert.Equal(t, http.StatusOK, limitedRequest(limiter, "register", testutil.IPAddresses.Private).Code)
	})

	t.Run("window expiry resets the limit", func(t *testing.T) {
		limiter, _, fastForward := setupRateLimiter(t, 1)

		assert.Equal(t, http.StatusOK, limitedRequest(limiter, "login", testutil.IPAddresses.Localhost).Code)
		assert.Equal(t, http.StatusTooManyRequests, limitedRequest(limiter, "login", testutil.IPAddresses.Localhost).Code)

		fastForward(2 * time.Minute)

		assert.Equal(t, http.StatusOK, limitedRequest(limiter, "login", testutil.IPAddresses.Localhost).Code)
	})

	t.Run("allows requests through when Redis is down", func(t *testing.T) {
		limiter, redisDB, _ := setupRateLimiter(t, 1)
		require.NoError(t, redisDB.Close())

		w := limitedRequest(limiter, "login", testutil.IPAddresses.Public)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("sets remaining quota header", func(t *testing.T) {
		limiter, _, _ := setupRateLimiter(t, 5)

		w := limitedRequest(limiter, "status", testutil.IPAddresses.Public)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})
}
