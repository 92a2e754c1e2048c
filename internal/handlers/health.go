package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/diegcard-arep/arep-microservicios/internal/database"
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

// HealthHandler handles health check endpoints for monitoring and
// orchestration. Provides a simple liveness check plus a readiness
// check that verifies the session store and the identity client.
type HealthHandler struct {
	redis    *database.RedisDB // Session store connection for readiness
	identity IdentityService   // Identity client for discovery readiness
}

// NewHealthHandler creates the health handler.
//
// Example:
//
//	healthHandler := handlers.NewHealthHandler(redisDB, oidcSvc)
//	r.Get("/health", healthHandler.Health)
//	r.Get("/ready", healthHandler.Ready)
func NewHealthHandler(redis *database.RedisDB, identity IdentityService) *HealthHandler {
	return &HealthHandler{
		redis:    redis,
		identity: identity,
	}
}

// HealthResponse represents the health check response structure.
//
// JSON example:
//
//	{
//	  "status": "UP",
//	  "timestamp": "2026-08-30T14:30:00Z",
//	  "services": {
//	    "redis": "healthy",
//	    "identity_provider": "healthy"
//	  }
//	}
type HealthResponse struct {
	Status    string            `json:"status"`             // "UP" or "DEGRADED"
	Timestamp time.Time         `json:"timestamp"`          // Current server time
	Services  map[string]string `json:"services,omitempty"` // Individual service health (readiness only)
}

// Health returns a simple liveness check. It only reports that the
// process is alive, never the state of dependencies; use Ready for
// that.
//
// Kubernetes liveness probe example:
//
//	livenessProbe:
//	  httpGet:
//	    path: /health
//	    port: 3000
//	  initialDelaySeconds: 10
//	  periodSeconds: 30
//
// @Summary      Health check (liveness probe)
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse  "Service is alive"
// @Router       /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "UP",
		Timestamp: time.Now(),
	}

	utils.RespondWithJSON(w, r, http.StatusOK, response)
}

// Ready checks if the gateway is ready to accept traffic: Redis must
// answer a ping and OpenID provider discovery must have completed.
// Returns 200 when both hold, 503 otherwise.
//
// Checks have a 5-second timeout to prevent hanging probes.
//
// Kubernetes readiness probe example:
//
//	readinessProbe:
//	  httpGet:
//	    path: /ready
//	    port: 3000
//	  initialDelaySeconds: 5
//	  periodSeconds: 10
//	  failureThreshold: 3
//
// @Summary      Readiness check
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse  "Ready for traffic"
// @Failure      503  {object}  HealthResponse  "A dependency is not ready"
// @Router       /ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string)
	allHealthy := true

	if err := h.redis.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Redis health check failed")
		services["redis"] = "unhealthy"
		allHealthy = false
	} else {
		services["redis"] = "healthy"
	}

	if h.identity.Ready() {
		services["identity_provider"] = "healthy"
	} else {
		services["identity_provider"] = "discovering"
		allHealthy = false
	}

	response := HealthResponse{
		Status:    "UP",
		Timestamp: time.Now(),
		Services:  services,
	}

	statusCode := http.StatusOK
	if !allHealthy {
		response.Status = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	utils.RespondWithJSON(w, r, statusCode, response)
}
