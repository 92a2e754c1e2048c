package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
)

func TestCall(t *testing.T) {
	ctx := context.Background()

	t.Run("sends bearer token and JSON headers", func(t *testing.T) {
		var gotAuth, gotAccept, gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotAccept = r.Header.Get("Accept")
			gotContentType = r.Header.Get("Content-Type")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		c := newClient("user", server.URL, 5*time.Second)
		var target map[string]bool
		err := c.call(ctx, "test-op", http.MethodPost, "/api/test", nil, "the-token",
			map[string]string{"key": "value"}, &target)

		require.NoError(t, err)
		assert.Equal(t, "Bearer the-token", gotAuth)
		assert.Equal(t, "application/json", gotAccept)
		assert.Equal(t, "application/json", gotContentType)
		assert.True(t, target["ok"])
	})

	t.Run("omits Authorization header without a token", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		c := newClient("user", server.URL, 5*time.Second)
		err := c.call(ctx, "test-op", http.MethodGet, "/api/test", nil, "", nil, nil)

		require.NoError(t, err)
		assert.Empty(t, gotAuth)
	})

	t.Run("encodes query parameters", func(t *testing.T) {
		var gotQuery url.Values
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		query := url.Values{}
		query.Set("userId", "u-1")
		query.Set("page", "2")

		c := newClient("stream", server.URL, 5*time.Second)
		err := c.call(ctx, "test-op", http.MethodGet, "/api/test", query, "", nil, nil)

		require.NoError(t, err)
		assert.Equal(t, "u-1", gotQuery.Get("userId"))
		assert.Equal(t, "2", gotQuery.Get("page"))
	})

	t.Run("relays downstream error status and message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"message": "Username already taken"})
		}))
		defer server.Close()

		c := newClient("user", server.URL, 5*time.Second)
		err := c.call(ctx, "register", http.MethodPost, "/api/users/register", nil, "", struct{}{}, nil)

		var upstreamErr *models.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusConflict, upstreamErr.StatusCode)
		assert.Equal(t, "Username already taken", upstreamErr.Message)
		assert.Equal(t, "user", upstreamErr.Service)
	})

	t.Run("maps transport failure to UpstreamUnavailableError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // connection refused from here on

		c := newClient("post", server.URL, time.Second)
		err := c.call(ctx, "create-post", http.MethodPost, "/api/posts", nil, "", struct{}{}, nil)

		var unavailable *models.UpstreamUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, "post", unavailable.Service)
		assert.Equal(t, "create-post", unavailable.Operation)
	})

	t.Run("times out slow downstream calls", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer func() {
			close(release)
			server.Close()
		}()

		c := newClient("stream", server.URL, 50*time.Millisecond)
		err := c.call(ctx, "personal-timeline", http.MethodGet, "/api/timeline/personal", nil, "", nil, nil)

		var unavailable *models.UpstreamUnavailableError
		require.ErrorAs(t, err, &unavailable)
	})

	t.Run("fails on undecodable success body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		c := newClient("user", server.URL, 5*time.Second)
		var target map[string]string
		err := c.call(ctx, "test-op", http.MethodGet, "/api/test", nil, "", nil, &target)

		assert.Error(t, err)
		var upstreamErr *models.UpstreamError
		assert.False(t, errors.As(err, &upstreamErr))
	})
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "message field",
			body:     `{"message":"User not found"}`,
			expected: "User not found",
		},
		{
			name:     "error field",
			body:     `{"error":"Invalid content"}`,
			expected: "Invalid content",
		},
		{
			name:     "message preferred over error",
			body:     `{"message":"primary","error":"secondary"}`,
			expected: "primary",
		},
		{
			name:     "empty body",
			body:     "",
			expected: "upstream request failed",
		},
		{
			name:     "non-JSON body",
			body:     "<html>502 Bad Gateway</html>",
			expected: "upstream request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message := extractMessage(strings.NewReader(tt.body))
			assert.Equal(t, tt.expected, message)
		})
	}
}
