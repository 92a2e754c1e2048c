package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diegcard-arep/arep-microservicios/internal/testutil"
)

func setupHealthHandler(t *testing.T, identityReady bool) (*HealthHandler, func()) {
	t.Helper()

	mr, cleanup := testutil.SetupMiniRedis(t)
	redisDB := testutil.NewTestRedisDB(t, mr)

	mockIdentity := new(MockIdentityService)
	mockIdentity.On("Ready").Return(identityReady)

	return NewHealthHandler(redisDB, mockIdentity), cleanup
}

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	handler, cleanup := setupHealthHandler(t, true)
	defer cleanup()

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeHealth(t, w)
	assert.Equal(t, "UP", resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Empty(t, resp.Services)
}

func TestReady(t *testing.T) {
	t.Run("ready when Redis and discovery are both up", func(t *testing.T) {
		handler, cleanup := setupHealthHandler(t, true)
		defer cleanup()

		w := httptest.NewRecorder()
		handler.Ready(w, httptest.NewRequest("GET", "/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeHealth(t, w)
		assert.Equal(t, "UP", resp.Status)
		assert.Equal(t, "healthy", resp.Services["redis"])
		assert.Equal(t, "healthy", resp.Services["identity_provider"])
	})

	t.Run("degraded while discovery is pending", func(t *testing.T) {
		handler, cleanup := setupHealthHandler(t, false)
		defer cleanup()

		w := httptest.NewRecorder()
		handler.Ready(w, httptest.NewRequest("GET", "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeHealth(t, w)
		assert.Equal(t, "DEGRADED", resp.Status)
		assert.Equal(t, "healthy", resp.Services["redis"])
		assert.Equal(t, "discovering", resp.Services["identity_provider"])
	})

	t.Run("degraded when Redis is down", func(t *testing.T) {
		handler, cleanup := setupHealthHandler(t, true)
		cleanup() // kill Redis before the probe

		w := httptest.NewRecorder()
		handler.Ready(w, httptest.NewRequest("GET", "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeHealth(t, w)
		assert.Equal(t, "DEGRADED", resp.Status)
		assert.Equal(t, "unhealthy", resp.Services["redis"])
	})
}
