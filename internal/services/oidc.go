// Package services provides business logic and application services.
// Services coordinate between handlers, the session store, and the
// downstream microservices, implementing:
//   - OpenID Connect authentication against the configured provider
//   - Server-side session lifecycle (create, enrich, destroy)
//   - Lazy resolution of the application user behind an identity
package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
	"github.com/diegcard-arep/arep-microservicios/pkg/config"
)

// ProviderMetadata holds the subset of the OpenID Connect discovery
// document the gateway uses. Fetched from
// {issuer}/.well-known/openid-configuration at startup.
type ProviderMetadata struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserInfoEndpoint      string `json:"userinfo_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// OIDCService handles the OpenID Connect authorization code flow against
// the configured identity provider. It manages provider discovery,
// authorization URL generation, code exchange, and ID token claim
// extraction.
//
// The service starts uninitialized. Initialize performs discovery and
// may be retried until it succeeds; until then every login-path method
// returns models.ErrNotInitialized so handlers can answer 503 instead
// of crashing the process on a slow provider.
type OIDCService struct {
	cfg        *config.OIDCConfig
	httpClient *http.Client

	mu    sync.RWMutex
	oauth *oauth2.Config    // nil until discovery succeeds
	meta  *ProviderMetadata // nil until discovery succeeds
}

// NewOIDCService creates an OIDC service for the configured provider.
// Call Initialize before use; the service is created unready so the
// HTTP server can start serving health checks while discovery retries
// in the background.
//
// Example:
//
//	oidcSvc := services.NewOIDCService(&cfg.OIDC)
//	go func() {
//	    if err := oidcSvc.InitializeWithRetry(ctx); err != nil {
//	        log.Error().Err(err).Msg("OIDC discovery abandoned")
//	    }
//	}()
func NewOIDCService(cfg *config.OIDCConfig) *OIDCService {
	return &OIDCService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Initialize fetches the provider's discovery document and builds the
// OAuth2 configuration from the discovered endpoints. Safe to call
// multiple times; the last successful result wins.
//
// Returns an error if the discovery document cannot be fetched or
// decoded. The service stays unready in that case.
func (s *OIDCService) Initialize(ctx context.Context) error {
	discoveryURL := s.cfg.IssuerURL + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build discovery request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", discoveryURL).Msg("Failed to fetch provider metadata")
		return fmt.Errorf("failed to fetch provider metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider metadata request returned status %d", resp.StatusCode)
	}

	var meta ProviderMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		log.Error().Err(err).Msg("Failed to decode provider metadata")
		return fmt.Errorf("failed to decode provider metadata: %w", err)
	}

	if meta.AuthorizationEndpoint == "" || meta.TokenEndpoint == "" {
		return fmt.Errorf("provider metadata missing required endpoints")
	}

	oauthConfig := &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		RedirectURL:  s.cfg.RedirectURL,
		Scopes:       s.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  meta.AuthorizationEndpoint,
			TokenURL: meta.TokenEndpoint,
		},
	}

	s.mu.Lock()
	s.oauth = oauthConfig
	s.meta = &meta
	s.mu.Unlock()

	log.Info().
		Str("issuer", meta.Issuer).
		Str("authorization_endpoint", meta.AuthorizationEndpoint).
		Msg("OIDC provider discovered")

	return nil
}

// Ready reports whether provider discovery has completed.
// Health and login endpoints use this to distinguish "starting up"
// from "broken".
func (s *OIDCService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oauth != nil
}

// snapshot returns the current oauth config and metadata, or
// models.ErrNotInitialized when discovery hasn't completed yet.
func (s *OIDCService) snapshot() (*oauth2.Config, *ProviderMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.oauth == nil {
		return nil, nil, models.ErrNotInitialized
	}
	return s.oauth, s.meta, nil
}

// AuthorizationURL builds the provider authorization URL for a login
// attempt. The state parameter protects the callback against CSRF and
// the nonce binds the eventual ID token to this attempt; both must be
// stored in the session before redirecting.
//
// Returns models.ErrNotInitialized if discovery hasn't completed.
//
// Example:
//
//	state, nonce := services.GenerateState(), services.GenerateNonce()
//	authURL, err := oidcSvc.AuthorizationURL(state, nonce)
//	if err != nil {
//	    utils.RespondWithAPIError(w, r, err)
//	    return
//	}
//	http.Redirect(w, r, authURL, http.StatusFound)
func (s *OIDCService) AuthorizationURL(state, nonce string) (string, error) {
	oauthConfig, _, err := s.snapshot()
	if err != nil {
		return "", err
	}
	return oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce)), nil
}

// CompleteLogin finishes the authorization code flow for a callback
// request. It verifies the returned state against the one stored in
// the session, exchanges the code for tokens, and verifies the ID
// token nonce against the stored nonce.
//
// Security checks fail with models.ErrCallbackSecurity and no tokens
// are returned; the caller must not mark the session authenticated.
//
// Parameters:
//   - ctx: Context for timeout and cancellation
//   - expectedState: State stored in the session at login initiation
//   - expectedNonce: Nonce stored in the session at login initiation
//   - state: State returned by the provider in the callback query
//   - code: Authorization code returned by the provider
//
// Returns the identity claims and token set on success.
func (s *OIDCService) CompleteLogin(ctx context.Context, expectedState, expectedNonce, state, code string) (*models.IdentityClaims, *models.TokenSet, error) {
	oauthConfig, _, err := s.snapshot()
	if err != nil {
		return nil, nil, err
	}

	if expectedState == "" || state != expectedState {
		log.Warn().Msg("Callback state mismatch")
		return nil, nil, fmt.Errorf("state mismatch: %w", models.ErrCallbackSecurity)
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("Failed to exchange authorization code")
		return nil, nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, nil, fmt.Errorf("token response missing id_token: %w", models.ErrCallbackSecurity)
	}

	claims, err := parseIDToken(rawIDToken, expectedNonce)
	if err != nil {
		return nil, nil, err
	}

	tokens := &models.TokenSet{
		AccessToken:  token.AccessToken,
		IDToken:      rawIDToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}

	log.Info().
		Str("sub", claims.Sub).
		Msg("Login completed")

	return claims, tokens, nil
}

// idTokenClaims mirrors the ID token payload fields the gateway reads.
type idTokenClaims struct {
	Email string `json:"email"`
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// parseIDToken extracts identity claims from an ID token and verifies
// its nonce. The token arrives directly from the provider's token
// endpoint over TLS, so its payload is read without signature
// verification.
func parseIDToken(rawIDToken, expectedNonce string) (*models.IdentityClaims, error) {
	var claims idTokenClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(rawIDToken, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse id_token: %w", err)
	}

	if expectedNonce == "" || claims.Nonce != expectedNonce {
		log.Warn().Msg("ID token nonce mismatch")
		return nil, fmt.Errorf("nonce mismatch: %w", models.ErrCallbackSecurity)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("id_token missing sub claim: %w", models.ErrCallbackSecurity)
	}

	return &models.IdentityClaims{
		Sub:   claims.Subject,
		Email: claims.Email,
	}, nil
}

// UserInfo fetches identity claims from the provider's UserInfo
// endpoint using the access token. Used as a fallback when the ID
// token omits profile claims (some providers only return email here).
//
// Example:
//
//	claims, err := oidcSvc.UserInfo(ctx, tokens.AccessToken)
//	if err != nil {
//	    return fmt.Errorf("failed to get user info: %w", err)
//	}
func (s *OIDCService) UserInfo(ctx context.Context, accessToken string) (*models.IdentityClaims, error) {
	_, meta, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if meta.UserInfoEndpoint == "" {
		return nil, fmt.Errorf("provider has no userinfo endpoint")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.UserInfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch user info")
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user info: status %d", resp.StatusCode)
	}

	var claims models.IdentityClaims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		log.Error().Err(err).Msg("Failed to decode user info")
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &claims, nil
}

// EndSessionURL builds the provider logout URL for a session's ID
// token. Providers that publish an end_session_endpoint get the full
// RP-initiated logout parameters; otherwise the configured fallback
// URL is returned so the browser still lands somewhere sensible.
func (s *OIDCService) EndSessionURL(idTokenHint string) string {
	_, meta, err := s.snapshot()
	if err != nil || meta.EndSessionEndpoint == "" {
		return s.cfg.LogoutFallbackURL
	}

	params := url.Values{}
	params.Set("client_id", s.cfg.ClientID)
	params.Set("logout_uri", s.cfg.PostLogoutRedirectURL)
	params.Set("post_logout_redirect_uri", s.cfg.PostLogoutRedirectURL)
	if idTokenHint != "" {
		params.Set("id_token_hint", idTokenHint)
	}

	return meta.EndSessionEndpoint + "?" + params.Encode()
}

// GenerateState generates a random state string for callback CSRF
// protection. The state is stored in the session before redirecting
// to the provider and must match the value echoed in the callback.
//
// Returns a URL-safe base64-encoded string of 16 random bytes.
func GenerateState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// GenerateNonce generates a random nonce binding an ID token to a
// single login attempt.
//
// Returns a URL-safe base64-encoded string of 16 random bytes.
func GenerateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
