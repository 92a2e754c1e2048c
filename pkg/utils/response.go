// Package utils provides common utility functions for HTTP response
// handling, request ID management, signed session cookies, and
// pagination. It includes standardized response formats with automatic
// request ID injection for tracing, plus the single place where the
// gateway's error taxonomy is translated into HTTP statuses.
package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// requestIDKey is the context key for request ID
const requestIDKey contextKey = "request_id"

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if the context is nil or no request ID is present.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID adds a request ID to the context for request tracing.
// This is typically called by middleware to inject a unique identifier
// for each request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ErrorResponse represents a standard error response structure.
// It includes the HTTP status text, a custom message, and a request ID
// for tracing.
type ErrorResponse struct {
	Error     string `json:"error"`                // HTTP status text (e.g., "Bad Request")
	Message   string `json:"message,omitempty"`    // Detailed error message
	RequestID string `json:"request_id,omitempty"` // Request ID for tracing
}

// RespondWithError sends a JSON error response with automatic request ID
// extraction from the request context.
//
// Example:
//
//	if user == nil {
//	    utils.RespondWithError(w, r, http.StatusNotFound, "User not found")
//	    return
//	}
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	requestID := GetRequestID(r.Context())
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("Failed to encode error response")
	}
}

// RespondWithJSON sends a JSON response with the given status code and data.
//
// Example:
//
//	utils.RespondWithJSON(w, r, http.StatusOK, user)
func RespondWithJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().
			Err(err).
			Str("request_id", GetRequestID(r.Context())).
			Msg("Failed to encode JSON response")
	}
}

// RespondWithMessage sends a simple message response with the given
// status code. Useful for endpoints that only need to return a status
// message.
func RespondWithMessage(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	RespondWithJSON(w, r, statusCode, map[string]string{"message": message})
}

// RespondWithAPIError translates an error from the gateway's taxonomy
// into an HTTP response. This is the only place error types are mapped
// to status codes, so handlers just return errors upward.
//
// Mapping:
//   - models.ErrNotInitialized            -> 503
//   - models.ErrUnauthorized              -> 401
//   - models.ErrUserNotRegistered         -> 404
//   - *models.ValidationError             -> 400 (message exposed: input echo, not internals)
//   - *models.UpstreamError               -> downstream status + extracted message, relayed
//   - *models.UpstreamUnavailableError    -> 502 with a generic message
//   - anything else                       -> 500 with a generic message
//
// Internals (transport errors, stack traces) are logged by the caller
// and never serialized to the client.
func RespondWithAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr  *models.ValidationError
		upstreamErr    *models.UpstreamError
		unavailableErr *models.UpstreamUnavailableError
	)

	switch {
	case errors.Is(err, models.ErrNotInitialized):
		RespondWithError(w, r, http.StatusServiceUnavailable, "Authentication service not initialized")
	case errors.Is(err, models.ErrUnauthorized):
		RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, models.ErrUserNotRegistered):
		RespondWithError(w, r, http.StatusNotFound, "User not found")
	case errors.As(err, &validationErr):
		RespondWithError(w, r, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &upstreamErr):
		RespondWithError(w, r, upstreamErr.StatusCode, upstreamErr.Message)
	case errors.As(err, &unavailableErr):
		RespondWithError(w, r, http.StatusBadGateway, "Upstream service unavailable")
	default:
		RespondWithError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
