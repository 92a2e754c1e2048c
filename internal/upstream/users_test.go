package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
)

func userServiceStub(t *testing.T, handler http.HandlerFunc) *UserClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewUserClient(server.URL, 5*time.Second)
}

func TestResolveBySubject(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the registered user", func(t *testing.T) {
		client := userServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/users/cognito/sub-1", r.URL.Path)
			json.NewEncoder(w).Encode(models.User{ID: "u-1", Username: "ada_l"})
		})

		user, err := client.ResolveBySubject(ctx, "token", "sub-1")
		require.NoError(t, err)
		assert.Equal(t, "u-1", user.ID)
		assert.Equal(t, "ada_l", user.Username)
	})

	t.Run("maps 404 to ErrUserNotRegistered", func(t *testing.T) {
		client := userServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "User not found"})
		})

		_, err := client.ResolveBySubject(ctx, "token", "sub-unknown")
		assert.ErrorIs(t, err, models.ErrUserNotRegistered)
	})

	t.Run("relays other downstream errors unchanged", func(t *testing.T) {
		client := userServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"message": "boom"})
		})

		_, err := client.ResolveBySubject(ctx, "token", "sub-1")
		assert.NotErrorIs(t, err, models.ErrUserNotRegistered)
		var upstreamErr *models.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusInternalServerError, upstreamErr.StatusCode)
	})

	t.Run("escapes the subject in the path", func(t *testing.T) {
		var gotPath string
		client := userServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			json.NewEncoder(w).Encode(models.User{ID: "u-1"})
		})

		_, err := client.ResolveBySubject(ctx, "token", "sub/../admin")
		require.NoError(t, err)
		assert.Equal(t, "/api/users/cognito/sub%2F..%2Fadmin", gotPath)
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the full registration payload", func(t *testing.T) {
		var gotBody RegisterRequest
		client := userServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/users/register", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(models.User{ID: "u-1", Username: gotBody.Username})
		})

		user, err := client.Register(ctx, "token", RegisterRequest{
			Username:   "ada_l",
			Email:      "ada@example.com",
			CognitoSub: "sub-1",
			Bio:        "systems and gardens",
		})
		require.NoError(t, err)
		assert.Equal(t, "ada_l", user.Username)
		assert.Equal(t, "sub-1", gotBody.CognitoSub)
		assert.Equal(t, "ada@example.com", gotBody.Email)
	})

	t.Run("relays a conflict from the user service", func(t *testing.T) {
		client := userServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"message": "Username already taken"})
		})

		_, err := client.Register(ctx, "token", RegisterRequest{Username: "taken"})
		var upstreamErr *models.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusConflict, upstreamErr.StatusCode)
		assert.Equal(t, "Username already taken", upstreamErr.Message)
	})
}

func TestGetByUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches a profile by username", func(t *testing.T) {
		client := userServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/users/username/ada_l", r.URL.Path)
			json.NewEncoder(w).Encode(models.User{ID: "u-1", Username: "ada_l", FollowersCount: 12})
		})

		user, err := client.GetByUsername(ctx, "token", "ada_l")
		require.NoError(t, err)
		assert.Equal(t, 12, user.FollowersCount)
	})

	t.Run("relays 404 for unknown usernames", func(t *testing.T) {
		client := userServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "User not found"})
		})

		_, err := client.GetByUsername(ctx, "token", "nobody")
		var upstreamErr *models.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusNotFound, upstreamErr.StatusCode)
	})
}
