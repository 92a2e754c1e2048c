package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"
	"github.com/rs/zerolog/log"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
)

// Session hash field names. The session is stored as a Redis hash so
// the login flow can write fields independently as it progresses.
const (
	fieldState      = "state"
	fieldNonce      = "nonce"
	fieldClaims     = "claims"
	fieldTokens     = "tokens"
	fieldUser       = "user"
	fieldDeviceInfo = "device_info"
	fieldIPAddress  = "ip_address"
	fieldCreatedAt  = "created_at"
)

// SessionStore defines the interface for session storage operations.
// This interface abstracts Redis operations for session management,
// enabling testing and dependency injection.
type SessionStore interface {
	CreateSession(ctx context.Context, sessionID string, fields map[string]interface{}, ttl time.Duration) error
	UpdateSessionFields(ctx context.Context, sessionID string, fields map[string]interface{}) error
	GetSessionData(ctx context.Context, sessionID string) (map[string]string, error)
	DeleteSessionField(ctx context.Context, sessionID string, field string) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// SessionService manages the gateway's server-side sessions. A session
// is created when a login starts, enriched at the provider callback
// (identity claims, tokens) and on first user resolution (application
// user), and destroyed at logout.
//
// Sessions expire a fixed interval after creation. The TTL is never
// refreshed, so activity cannot extend a session past its initial
// lifetime.
type SessionService struct {
	store SessionStore  // Redis-backed session persistence
	ttl   time.Duration // Absolute session lifetime (default: 24 hours)
}

// storedTokens is the Redis serialization of a models.TokenSet.
// TokenSet excludes every field from JSON so tokens can never leak
// into an API response; this private mirror carries them into the
// session hash instead.
type storedTokens struct {
	AccessToken  string    `json:"access_token"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewSessionService creates a session service.
//
// Parameters:
//   - store: Session store implementation (typically database.RedisDB)
//   - ttl: Absolute session lifetime (e.g., 24*time.Hour)
func NewSessionService(store SessionStore, ttl time.Duration) *SessionService {
	return &SessionService{
		store: store,
		ttl:   ttl,
	}
}

// TTL returns the configured absolute session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create starts a new session for a login attempt. The state and nonce
// generated for the attempt are stored so the callback can verify them,
// along with device metadata for observability.
//
// Parameters:
//   - ctx: Context for timeout and cancellation
//   - state: CSRF-binding value for the provider callback
//   - nonce: One-time value bound to the eventual ID token
//   - deviceInfo: Parsed User-Agent string (use ExtractDeviceInfo)
//   - ipAddress: Client IP address (use utils.ExtractClientIP)
//
// Returns the new session, whose ID must be set in a signed cookie.
//
// Example:
//
//	state, nonce := services.GenerateState(), services.GenerateNonce()
//	session, err := sessionSvc.Create(ctx, state, nonce,
//	    services.ExtractDeviceInfo(r.UserAgent()),
//	    utils.ExtractClientIP(r),
//	)
func (s *SessionService) Create(ctx context.Context, state, nonce, deviceInfo, ipAddress string) (*models.Session, error) {
	sessionID := uuid.New().String()
	now := time.Now()

	fields := map[string]interface{}{
		fieldState:      state,
		fieldNonce:      nonce,
		fieldDeviceInfo: deviceInfo,
		fieldIPAddress:  ipAddress,
		fieldCreatedAt:  now.Unix(),
	}

	if err := s.store.CreateSession(ctx, sessionID, fields, s.ttl); err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", sessionID).
		Str("device", deviceInfo).
		Msg("Session created")

	return &models.Session{
		ID:         sessionID,
		State:      state,
		Nonce:      nonce,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}, nil
}

// Get loads a session by ID and reconstructs it from the stored hash.
// Returns models.ErrSessionNotFound if the session doesn't exist or
// has expired; corrupt stored fields are treated the same way so a bad
// session can always be recovered from by logging in again.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	data, err := s.store.GetSessionData(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	createdAtUnix, err := strconv.ParseInt(data[fieldCreatedAt], 10, 64)
	if err != nil {
		log.Warn().Str("session_id", sessionID).Msg("Session has invalid created_at, discarding")
		return nil, models.ErrSessionNotFound
	}
	createdAt := time.Unix(createdAtUnix, 0)

	session := &models.Session{
		ID:         sessionID,
		State:      data[fieldState],
		Nonce:      data[fieldNonce],
		DeviceInfo: data[fieldDeviceInfo],
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(s.ttl),
	}

	if raw := data[fieldClaims]; raw != "" {
		var claims models.IdentityClaims
		if err := json.Unmarshal([]byte(raw), &claims); err != nil {
			log.Warn().Str("session_id", sessionID).Msg("Session has corrupt claims, discarding")
			return nil, models.ErrSessionNotFound
		}
		session.Claims = &claims
	}

	if raw := data[fieldTokens]; raw != "" {
		var stored storedTokens
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			log.Warn().Str("session_id", sessionID).Msg("Session has corrupt tokens, discarding")
			return nil, models.ErrSessionNotFound
		}
		session.Tokens = &models.TokenSet{
			AccessToken:  stored.AccessToken,
			IDToken:      stored.IDToken,
			RefreshToken: stored.RefreshToken,
			ExpiresAt:    stored.ExpiresAt,
		}
	}

	if raw := data[fieldUser]; raw != "" {
		var user models.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			log.Warn().Str("session_id", sessionID).Msg("Session has corrupt user, discarding")
			return nil, models.ErrSessionNotFound
		}
		session.User = &user
	}

	return session, nil
}

// SetLoginAttempt overwrites the state and nonce on an existing
// session. Used when a browser that already has a session cookie
// starts another login, so only the newest attempt can complete.
func (s *SessionService) SetLoginAttempt(ctx context.Context, sessionID, state, nonce string) error {
	fields := map[string]interface{}{
		fieldState: state,
		fieldNonce: nonce,
	}
	if err := s.store.UpdateSessionFields(ctx, sessionID, fields); err != nil {
		return fmt.Errorf("failed to store login attempt: %w", err)
	}
	return nil
}

// SetIdentity stores the identity established at a successful provider
// callback and consumes the one-time state and nonce so a replayed
// callback cannot match again.
func (s *SessionService) SetIdentity(ctx context.Context, sessionID string, claims *models.IdentityClaims, tokens *models.TokenSet) error {
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return fmt.Errorf("failed to marshal claims: %w", err)
	}

	tokensJSON, err := json.Marshal(storedTokens{
		AccessToken:  tokens.AccessToken,
		IDToken:      tokens.IDToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	fields := map[string]interface{}{
		fieldClaims: string(claimsJSON),
		fieldTokens: string(tokensJSON),
	}
	if err := s.store.UpdateSessionFields(ctx, sessionID, fields); err != nil {
		return fmt.Errorf("failed to store identity: %w", err)
	}

	for _, field := range []string{fieldState, fieldNonce} {
		if err := s.store.DeleteSessionField(ctx, sessionID, field); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Str("field", field).
				Msg("Failed to clear one-time login field")
		}
	}

	log.Info().
		Str("session_id", sessionID).
		Str("sub", claims.Sub).
		Msg("Session authenticated")

	return nil
}

// SetUser caches the resolved application user on the session so later
// requests skip the user-service lookup.
func (s *SessionService) SetUser(ctx context.Context, sessionID string, user *models.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	fields := map[string]interface{}{
		fieldUser: string(userJSON),
	}
	if err := s.store.UpdateSessionFields(ctx, sessionID, fields); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("username", user.Username).
		Msg("Application user cached on session")

	return nil
}

// Destroy deletes a session. Called on logout and when a callback
// fails a security check.
func (s *SessionService) Destroy(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to destroy session")
		return fmt.Errorf("failed to destroy session: %w", err)
	}

	log.Info().Str("session_id", sessionID).Msg("Session destroyed")
	return nil
}

// ExtractDeviceInfo extracts human-readable device information from a
// User-Agent header. Stored on the session for observability.
//
// Example:
//
//	ExtractDeviceInfo(r.UserAgent()) // "Chrome 133.0 · macOS 14 · Desktop"
func ExtractDeviceInfo(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}

	ua := useragent.Parse(userAgent)

	var parts []string

	if ua.Name != "" {
		browser := ua.Name
		if ua.Version != "" {
			browser += " " + ua.Version
		}
		parts = append(parts, browser)
	}

	if ua.OS != "" {
		os := ua.OS
		if ua.OSVersion != "" {
			os += " " + ua.OSVersion
		}
		parts = append(parts, os)
	}

	if ua.Mobile {
		parts = append(parts, "Mobile")
	} else if ua.Tablet {
		parts = append(parts, "Tablet")
	} else if ua.Desktop {
		parts = append(parts, "Desktop")
	}

	if len(parts) == 0 {
		// Fallback to truncated user agent
		if len(userAgent) > 100 {
			return userAgent[:100] + "..."
		}
		return userAgent
	}

	return strings.Join(parts, " · ")
}
