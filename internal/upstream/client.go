// Package upstream implements HTTP clients for the downstream
// microservices behind the gateway: the user service, the post service,
// and the stream (timeline) service.
//
// All clients share one calling convention: requests carry the
// session's access token as a bearer credential, responses are decoded
// as JSON, downstream 4xx/5xx answers become models.UpstreamError with
// the downstream status relayed as-is, and transport failures become
// models.UpstreamUnavailableError. Calls are never retried; the
// browser owns the retry decision.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
)

// client is the shared HTTP caller embedded by the per-service clients.
type client struct {
	service string // downstream name used in errors, logs, and metrics
	baseURL string
	http    *http.Client
	timeout time.Duration // per-call deadline
}

func newClient(service, baseURL string, timeout time.Duration) *client {
	return &client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

// downstreamMessage mirrors the error body shape of the downstream
// services. They are not perfectly consistent: some answer
// {"message": "..."}, others {"error": "..."}.
type downstreamMessage struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// call performs one downstream request.
//
// Parameters:
//   - ctx: Request context; a per-call timeout is layered on top
//   - operation: Logical operation name, e.g. "create-post"
//   - method: HTTP method
//   - path: Path relative to the service base URL
//   - query: Optional query parameters
//   - accessToken: Bearer token forwarded downstream; empty for public calls
//   - body: Optional request body, marshaled to JSON
//   - target: Optional pointer the response body is decoded into
//
// Error contract:
//   - transport failure (connect refused, timeout): *models.UpstreamUnavailableError
//   - downstream 4xx/5xx: *models.UpstreamError carrying the status and
//     a message extracted from the body
func (c *client) call(ctx context.Context, operation, method, path string, query url.Values, accessToken string, body, target interface{}) error {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, requestURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		recordUpstreamCall(c.service, operation, "unavailable", duration)
		log.Error().
			Err(err).
			Str("service", c.service).
			Str("operation", operation).
			Msg("Downstream service unreachable")
		return &models.UpstreamUnavailableError{
			Service:   c.service,
			Operation: operation,
			Err:       err,
		}
	}
	defer resp.Body.Close()

	recordUpstreamCall(c.service, operation, fmt.Sprintf("%d", resp.StatusCode), duration)

	if resp.StatusCode >= 400 {
		message := extractMessage(resp.Body)
		log.Warn().
			Str("service", c.service).
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("message", message).
			Msg("Downstream service returned error")
		return &models.UpstreamError{
			Service:    c.service,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}

	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		log.Error().
			Err(err).
			Str("service", c.service).
			Str("operation", operation).
			Msg("Failed to decode downstream response")
		return fmt.Errorf("failed to decode %s response: %w", c.service, err)
	}

	return nil
}

// extractMessage pulls a human-readable message out of a downstream
// error body. Falls back to a generic message when the body is empty
// or not JSON.
func extractMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "upstream request failed"
	}

	var msg downstreamMessage
	if err := json.Unmarshal(data, &msg); err == nil {
		if msg.Message != "" {
			return msg.Message
		}
		if msg.Error != "" {
			return msg.Error
		}
	}

	return "upstream request failed"
}
