package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/diegcard-arep/arep-microservicios/pkg/config"
)

// OIDCConfig builds provider client configuration pointing at the fake
// provider's issuer.
func (p *FakeProvider) OIDCConfig() *config.OIDCConfig {
	return &config.OIDCConfig{
		IssuerURL:             p.Server.URL,
		ClientID:              "test-client",
		ClientSecret:          "test-secret",
		RedirectURL:           "http://localhost:3000/callback",
		PostLogoutRedirectURL: "http://localhost:3000",
		Scopes:                []string{"openid", "email"},
	}
}

// FakeProvider is an in-process OpenID Connect provider for tests. It
// serves a discovery document and a token endpoint that mints ID tokens
// with a configurable subject, email, and nonce.
type FakeProvider struct {
	Server *httptest.Server

	mu    sync.Mutex
	sub   string
	email string
	nonce string

	// TokenStatus, when non-zero, makes the token endpoint fail with
	// that HTTP status instead of issuing tokens.
	TokenStatus int
}

// NewFakeProvider starts a fake provider and registers cleanup with t.
func NewFakeProvider(t *testing.T) *FakeProvider {
	t.Helper()

	p := &FakeProvider{
		sub:   "test-subject-123",
		email: "test@example.com",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", p.handleDiscovery)
	mux.HandleFunc("/oauth2/token", p.handleToken)
	mux.HandleFunc("/oauth2/userInfo", p.handleUserInfo)

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

// IssuerURL returns the provider's issuer, suitable for OIDCConfig.IssuerURL.
func (p *FakeProvider) IssuerURL() string {
	return p.Server.URL
}

// SetIdentity configures the claims minted into the next ID token.
func (p *FakeProvider) SetIdentity(sub, email, nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sub = sub
	p.email = email
	p.nonce = nonce
}

func (p *FakeProvider) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"issuer":                 p.Server.URL,
		"authorization_endpoint": p.Server.URL + "/oauth2/authorize",
		"token_endpoint":         p.Server.URL + "/oauth2/token",
		"userinfo_endpoint":      p.Server.URL + "/oauth2/userInfo",
		"end_session_endpoint":   p.Server.URL + "/logout",
		"jwks_uri":               p.Server.URL + "/.well-known/jwks.json",
	})
}

func (p *FakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	if p.TokenStatus != 0 {
		http.Error(w, `{"error":"invalid_grant"}`, p.TokenStatus)
		return
	}

	p.mu.Lock()
	sub, email, nonce := p.sub, p.email, p.nonce
	p.mu.Unlock()

	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"nonce": nonce,
		"iss":   p.Server.URL,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-signing-key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": "test-access-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     idToken,
	})
}

func (p *FakeProvider) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	sub, email := p.sub, p.email
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"sub":   sub,
		"email": email,
	})
}
