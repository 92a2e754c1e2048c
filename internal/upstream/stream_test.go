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
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

func streamServiceStub(t *testing.T, handler http.HandlerFunc) *StreamClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewStreamClient(server.URL, 5*time.Second)
}

func TestTimelines(t *testing.T) {
	ctx := context.Background()
	page := utils.PageParams{Page: 1, Size: 10}
	timeline := models.Timeline{
		Posts:         []models.Post{{ID: "p-1", Content: "hello"}},
		Page:          1,
		Size:          10,
		TotalElements: 11,
		TotalPages:    2,
	}

	t.Run("personal passes user and pagination", func(t *testing.T) {
		client := streamServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/timeline/personal", r.URL.Path)
			assert.Equal(t, "u-1", r.URL.Query().Get("userId"))
			assert.Equal(t, "1", r.URL.Query().Get("page"))
			assert.Equal(t, "10", r.URL.Query().Get("size"))
			json.NewEncoder(w).Encode(timeline)
		})

		got, err := client.Personal(ctx, "token", "u-1", page)
		require.NoError(t, err)
		require.Len(t, got.Posts, 1)
		assert.Equal(t, "p-1", got.Posts[0].ID)
		assert.EqualValues(t, 11, got.TotalElements)
	})

	t.Run("global still passes the acting user", func(t *testing.T) {
		client := streamServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/timeline/global", r.URL.Path)
			assert.Equal(t, "u-1", r.URL.Query().Get("userId"))
			json.NewEncoder(w).Encode(timeline)
		})

		_, err := client.Global(ctx, "token", "u-1", page)
		require.NoError(t, err)
	})

	t.Run("user timeline targets the path user with the acting user in query", func(t *testing.T) {
		client := streamServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/timeline/user/u-2", r.URL.Path)
			assert.Equal(t, "u-1", r.URL.Query().Get("currentUserId"))
			json.NewEncoder(w).Encode(timeline)
		})

		_, err := client.User(ctx, "token", "u-2", "u-1", page)
		require.NoError(t, err)
	})

	t.Run("relays stream service failures", func(t *testing.T) {
		client := streamServiceStub(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": "warming up"})
		})

		_, err := client.Personal(ctx, "token", "u-1", page)
		var upstreamErr *models.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusServiceUnavailable, upstreamErr.StatusCode)
		assert.Equal(t, "warming up", upstreamErr.Message)
	})
}
