// Package testutil provides common testing utilities, fixtures, and
// helpers for use across all test files in the gateway project.
package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
)

// TestSecret is a cookie-signing secret of valid length for tests.
var TestSecret = []byte("0123456789abcdef0123456789abcdef")

// TestClaims creates identity claims with default values
func TestClaims() *models.IdentityClaims {
	return &models.IdentityClaims{
		Sub:   "test-subject-123",
		Email: "test@example.com",
	}
}

// TestTokens creates a token set with default values
func TestTokens() *models.TokenSet {
	return &models.TokenSet{
		AccessToken:  "test-access-token",
		IDToken:      "test-id-token",
		RefreshToken: "test-refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

// TestUser creates an application user with default values
func TestUser() *models.User {
	now := time.Now()
	return &models.User{
		ID:             "665f1c2ab3e4d5f6a7b8c9d0",
		Username:       "testuser",
		Email:          "test@example.com",
		Bio:            "just testing",
		FollowersCount: 2,
		FollowingCount: 3,
		CreatedAt:      TimePtr(now),
		UpdatedAt:      TimePtr(now),
	}
}

// AuthenticatedSession creates a session holding a complete identity
// but no resolved application user
func AuthenticatedSession() *models.Session {
	now := time.Now()
	return &models.Session{
		ID:         uuid.New().String(),
		Claims:     TestClaims(),
		Tokens:     TestTokens(),
		DeviceInfo: "Chrome 133 · Windows 11 · Desktop",
		CreatedAt:  now,
		ExpiresAt:  now.Add(24 * time.Hour),
	}
}

// RegisteredSession creates a session with a resolved application user
func RegisteredSession() *models.Session {
	s := AuthenticatedSession()
	s.User = TestUser()
	return s
}

// PendingSession creates a session mid-login: state and nonce set,
// no identity yet
func PendingSession(state, nonce string) *models.Session {
	now := time.Now()
	return &models.Session{
		ID:        uuid.New().String(),
		State:     state,
		Nonce:     nonce,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

// TestPost creates a post with default values
func TestPost() *models.Post {
	now := time.Now()
	return &models.Post{
		ID:         "post-1",
		UserID:     "665f1c2ab3e4d5f6a7b8c9d0",
		Username:   "testuser",
		Content:    "hello world",
		LikesCount: 1,
		CreatedAt:  TimePtr(now),
	}
}

// TestTimeline creates a one-page timeline holding a single post
func TestTimeline() *models.Timeline {
	return &models.Timeline{
		Posts:         []models.Post{*TestPost()},
		Page:          0,
		Size:          20,
		TotalElements: 1,
		TotalPages:    1,
	}
}

// MintIDToken builds a signed ID token carrying the given subject,
// email, and nonce. The signature key is irrelevant to the gateway,
// which reads claims without verifying; the token only has to be
// structurally valid.
func MintIDToken(t *testing.T, sub, email, nonce string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"nonce": nonce,
		"iss":   "https://provider.test",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("Failed to mint ID token: %v", err)
	}
	return signed
}

// TimePtr returns a pointer to the given time
func TimePtr(t time.Time) *time.Time {
	return &t
}

// UserAgents provides common user agent strings for testing
var UserAgents = struct {
	Chrome       string
	Firefox      string
	MobileSafari string
	Unknown      string
}{
	Chrome:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	Firefox:      "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	MobileSafari: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	Unknown:      "",
}

// IPAddresses provides common IP addresses for testing
var IPAddresses = struct {
	Public    string
	Private   string
	Localhost string
}{
	Public:    "203.0.113.45",
	Private:   "192.168.1.100",
	Localhost: "127.0.0.1",
}
