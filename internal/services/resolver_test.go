package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
	"github.com/diegcard-arep/arep-microservicios/internal/testutil"
	"github.com/diegcard-arep/arep-microservicios/internal/upstream"
)

// fakeUserService answers subject lookups for a single known subject
// and counts how many lookups it served.
func fakeUserService(t *testing.T, knownSub string, user *models.User) (*httptest.Server, *int64) {
	t.Helper()

	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if r.URL.Path == "/api/users/cognito/"+knownSub {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(user)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "User not found"})
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func setupResolver(t *testing.T, userServiceURL string) (*UserResolver, *SessionService) {
	t.Helper()

	mr, cleanup := testutil.SetupMiniRedis(t)
	redisDB := testutil.NewTestRedisDB(t, mr)
	t.Cleanup(func() {
		cleanup()
		redisDB.Close()
	})

	sessions := NewSessionService(redisDB, 24*time.Hour)
	users := upstream.NewUserClient(userServiceURL, 5*time.Second)
	return NewUserResolver(sessions, users), sessions
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ErrUnauthorized for anonymous session", func(t *testing.T) {
		server, _ := fakeUserService(t, "any", testutil.TestUser())
		resolver, _ := setupResolver(t, server.URL)

		session := testutil.PendingSession("state", "nonce")
		_, err := resolver.Resolve(ctx, session)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("resolves registered user by subject", func(t *testing.T) {
		expected := testutil.TestUser()
		server, _ := fakeUserService(t, "test-subject-123", expected)
		resolver, sessions := setupResolver(t, server.URL)

		session, err := sessions.Create(ctx, "state", "nonce", "Device", testutil.IPAddresses.Public)
		require.NoError(t, err)
		require.NoError(t, sessions.SetIdentity(ctx, session.ID, testutil.TestClaims(), testutil.TestTokens()))
		session, err = sessions.Get(ctx, session.ID)
		require.NoError(t, err)

		user, err := resolver.Resolve(ctx, session)
		require.NoError(t, err)
		assert.Equal(t, expected.ID, user.ID)
		assert.Equal(t, expected.Username, user.Username)
		assert.Equal(t, user, session.User)
	})

	t.Run("returns ErrUserNotRegistered on 404", func(t *testing.T) {
		server, _ := fakeUserService(t, "someone-else", testutil.TestUser())
		resolver, _ := setupResolver(t, server.URL)

		session := testutil.AuthenticatedSession()
		_, err := resolver.Resolve(ctx, session)
		assert.ErrorIs(t, err, models.ErrUserNotRegistered)
	})

	t.Run("memoizes the resolution on the session", func(t *testing.T) {
		server, hits := fakeUserService(t, "test-subject-123", testutil.TestUser())
		resolver, sessions := setupResolver(t, server.URL)

		session, err := sessions.Create(ctx, "state", "nonce", "Device", testutil.IPAddresses.Public)
		require.NoError(t, err)
		require.NoError(t, sessions.SetIdentity(ctx, session.ID, testutil.TestClaims(), testutil.TestTokens()))
		session, err = sessions.Get(ctx, session.ID)
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, session)
		require.NoError(t, err)

		// Second resolve on the same in-memory session hits the cache
		_, err = resolver.Resolve(ctx, session)
		require.NoError(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt64(hits))

		// A reloaded session carries the cached user too
		reloaded, err := sessions.Get(ctx, session.ID)
		require.NoError(t, err)
		_, err = resolver.Resolve(ctx, reloaded)
		require.NoError(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt64(hits))
	})
}

func TestRemember(t *testing.T) {
	ctx := context.Background()

	t.Run("caches a freshly registered user", func(t *testing.T) {
		server, hits := fakeUserService(t, "unreachable", testutil.TestUser())
		resolver, sessions := setupResolver(t, server.URL)

		session, err := sessions.Create(ctx, "state", "nonce", "Device", testutil.IPAddresses.Public)
		require.NoError(t, err)
		require.NoError(t, sessions.SetIdentity(ctx, session.ID, testutil.TestClaims(), testutil.TestTokens()))
		session, err = sessions.Get(ctx, session.ID)
		require.NoError(t, err)

		user := testutil.TestUser()
		resolver.Remember(ctx, session, user)
		assert.Equal(t, user, session.User)

		// Resolving afterwards never calls the user service
		resolved, err := resolver.Resolve(ctx, session)
		require.NoError(t, err)
		assert.Equal(t, user, resolved)
		assert.Zero(t, atomic.LoadInt64(hits))
	})
}
