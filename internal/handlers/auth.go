// Package handlers implements the gateway's HTTP endpoints: the
// OpenID Connect login flow, the proxied user/post/timeline API, the
// health endpoints, and static frontend serving.
//
// Handlers depend on narrow, consumer-defined interfaces so tests can
// substitute fakes without spinning up Redis or the identity provider.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/diegcard-arep/arep-microservicios/internal/middleware"
	"github.com/diegcard-arep/arep-microservicios/internal/models"
	"github.com/diegcard-arep/arep-microservicios/internal/services"
	"github.com/diegcard-arep/arep-microservicios/pkg/config"
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

// IdentityService defines the interface for OpenID Connect operations.
// Implemented by services.OIDCService.
type IdentityService interface {
	Ready() bool
	AuthorizationURL(state, nonce string) (string, error)
	CompleteLogin(ctx context.Context, expectedState, expectedNonce, state, code string) (*models.IdentityClaims, *models.TokenSet, error)
	EndSessionURL(idTokenHint string) string
}

// SessionManager defines the interface for session lifecycle
// operations. Implemented by services.SessionService.
type SessionManager interface {
	Create(ctx context.Context, state, nonce, deviceInfo, ipAddress string) (*models.Session, error)
	SetLoginAttempt(ctx context.Context, sessionID, state, nonce string) error
	SetIdentity(ctx context.Context, sessionID string, claims *models.IdentityClaims, tokens *models.TokenSet) error
	Destroy(ctx context.Context, sessionID string) error
	TTL() time.Duration
}

// UserResolver defines the interface for resolving and caching the
// application user behind a session. Implemented by
// services.UserResolver.
type UserResolver interface {
	Resolve(ctx context.Context, session *models.Session) (*models.User, error)
	Remember(ctx context.Context, session *models.Session, user *models.User)
}

// AuthHandler implements the authentication flow endpoints: status,
// login initiation, the provider callback, and logout.
//
// The flow is a small state machine over the session:
//
//	anonymous -> login initiated -> callback pending -> authenticated
//	                                                 -> logged out
//
// Every transition is driven by a browser redirect, and the session is
// the only carrier of state between them.
type AuthHandler struct {
	identity     IdentityService
	sessions     SessionManager
	resolver     UserResolver
	cookieName   string
	secret       []byte
	isProduction bool
}

// NewAuthHandler creates the auth handler.
//
// Example:
//
//	authHandler := handlers.NewAuthHandler(oidcSvc, sessionSvc, resolver, &cfg.Session, cfg.Server.IsProduction())
//	r.Get("/api/auth/status", authHandler.Status)
//	r.Get("/login", authHandler.Login)
//	r.Get(cfg.OIDC.CallbackPath(), authHandler.Callback)
//	r.Get("/logout", authHandler.Logout)
func NewAuthHandler(
	identity IdentityService,
	sessions SessionManager,
	resolver UserResolver,
	sessionCfg *config.SessionConfig,
	isProduction bool,
) *AuthHandler {
	return &AuthHandler{
		identity:     identity,
		sessions:     sessions,
		resolver:     resolver,
		cookieName:   sessionCfg.CookieName,
		secret:       sessionCfg.Secret,
		isProduction: isProduction,
	}
}

// AuthStatusResponse is the shape the frontend polls to decide which
// view to render: logged out, registration, or the feed.
type AuthStatusResponse struct {
	IsAuthenticated bool                   `json:"isAuthenticated"`
	UserInfo        *models.IdentityClaims `json:"userInfo"`
	CurrentUser     *models.User           `json:"currentUser"`
}

// Status reports the authentication state of the current session.
// Always answers 200; the interesting information is in the body.
//
// Three shapes are possible:
//   - anonymous: isAuthenticated false, both users null
//   - authenticated, not registered: isAuthenticated true, userInfo
//     set, currentUser null
//   - registered: all three set
//
// A failure to reach the user service degrades to the anonymous shape
// rather than erroring: the frontend shows the login screen and the
// user retries, which is strictly better than a broken page.
//
// @Summary      Authentication status
// @Description  Returns the session's identity claims and resolved application user, if any.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  AuthStatusResponse
// @Router       /api/auth/status [get]
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	anonymous := AuthStatusResponse{}

	session, ok := middleware.SessionFrom(r.Context())
	if !ok || !session.Authenticated() {
		utils.RespondWithJSON(w, r, http.StatusOK, anonymous)
		return
	}

	resp := AuthStatusResponse{
		IsAuthenticated: true,
		UserInfo:        session.Claims,
	}

	user, err := h.resolver.Resolve(r.Context(), session)
	switch {
	case err == nil:
		resp.CurrentUser = user
	case errors.Is(err, models.ErrUserNotRegistered):
		// Authenticated with the provider, no application user yet.
	default:
		log.Error().Err(err).Msg("Failed to resolve user for status check")
		utils.RespondWithJSON(w, r, http.StatusOK, anonymous)
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Login initiates the OpenID Connect authorization code flow.
// Generates a state and nonce for this attempt, binds them to the
// session, and redirects the browser to the provider's authorization
// endpoint.
//
// A browser that already has a session simply gets fresh state and
// nonce on it; only the newest attempt can complete. Otherwise a new
// session is created and its signed ID set as a cookie.
//
// Answers 503 while provider discovery has not completed.
//
// @Summary      Initiate login
// @Description  Redirects to the identity provider's consent screen.
// @Tags         auth
// @Success      302  {string}  string  "Redirect to provider"
// @Failure      503  {object}  utils.ErrorResponse  "Identity client not initialized"
// @Router       /login [get]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.identity.Ready() {
		middleware.RecordLoginAttempt("not_ready")
		utils.RespondWithAPIError(w, r, models.ErrNotInitialized)
		return
	}

	state := services.GenerateState()
	nonce := services.GenerateNonce()

	session, ok := middleware.SessionFrom(r.Context())
	if ok {
		if err := h.sessions.SetLoginAttempt(r.Context(), session.ID, state, nonce); err != nil {
			// Session evaporated between Attach and here; start fresh.
			ok = false
		}
	}
	if !ok {
		newSession, err := h.sessions.Create(r.Context(),
			state, nonce,
			services.ExtractDeviceInfo(r.UserAgent()),
			utils.ExtractClientIP(r),
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create login session")
			utils.RespondWithError(w, r, http.StatusInternalServerError, "Error initiating login")
			return
		}

		signed := utils.SignSessionID(newSession.ID, h.secret)
		utils.SetSessionCookie(w, h.cookieName, signed, int(h.sessions.TTL().Seconds()), h.isProduction)
	}

	authURL, err := h.identity.AuthorizationURL(state, nonce)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the authorization code flow when the provider
// redirects back. Verifies the state and nonce bound to the session,
// exchanges the code, stores the identity, and routes the browser by
// registration status: registered users land on the feed, fresh
// identities on the registration page.
//
// Every failure ends in a redirect rather than an error page; the
// frontend renders the error query parameter. A failed security check
// destroys the session entirely.
//
// @Summary      Provider callback
// @Description  Exchanges the authorization code and establishes the session identity.
// @Tags         auth
// @Param        state  query  string  true  "State echoed by the provider"
// @Param        code   query  string  true  "Authorization code"
// @Success      302    {string}  string  "Redirect to / or /register"
// @Router       /callback [get]
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if !h.identity.Ready() {
		middleware.RecordLoginAttempt("not_ready")
		http.Redirect(w, r, "/?error=service_not_initialized", http.StatusFound)
		return
	}

	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		log.Warn().Msg("Callback without a session")
		middleware.RecordLoginAttempt("no_session")
		http.Redirect(w, r, "/?error=authentication_failed", http.StatusFound)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	claims, tokens, err := h.identity.CompleteLogin(r.Context(), session.State, session.Nonce, state, code)
	if err != nil {
		if errors.Is(err, models.ErrCallbackSecurity) {
			middleware.RecordLoginAttempt("security_check_failed")
		} else {
			middleware.RecordLoginAttempt("exchange_failed")
		}
		log.Warn().Err(err).Msg("Callback failed")

		// The session's login attempt is burned either way.
		if err := h.sessions.Destroy(r.Context(), session.ID); err != nil {
			log.Error().Err(err).Msg("Failed to destroy session after callback failure")
		}
		utils.ClearSessionCookie(w, h.cookieName)
		http.Redirect(w, r, "/?error=authentication_failed", http.StatusFound)
		return
	}

	if err := h.sessions.SetIdentity(r.Context(), session.ID, claims, tokens); err != nil {
		log.Error().Err(err).Msg("Failed to store session identity")
		http.Redirect(w, r, "/?error=authentication_failed", http.StatusFound)
		return
	}
	session.Claims = claims
	session.Tokens = tokens
	middleware.RecordLoginAttempt("success")

	// Route by registration status.
	_, err = h.resolver.Resolve(r.Context(), session)
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusFound)
	case errors.Is(err, models.ErrUserNotRegistered):
		http.Redirect(w, r, "/register", http.StatusFound)
	default:
		// The identity is established but the user service is down.
		// Sending the browser to /register here could tell a registered
		// user to register twice; surface the outage instead.
		log.Error().Err(err).Msg("User resolution failed at callback")
		http.Redirect(w, r, "/?error=profile_unavailable", http.StatusFound)
	}
}

// Logout destroys the session and redirects the browser to the
// provider's end-session endpoint so the provider-side login is
// terminated too. The local session is destroyed before the redirect:
// even if the browser never follows it, the gateway session is dead.
//
// Safe to call without a session; the browser is still sent to the
// provider logout page.
//
// @Summary      Log out
// @Description  Destroys the session and redirects to the provider logout endpoint.
// @Tags         auth
// @Success      302  {string}  string  "Redirect to provider logout"
// @Router       /logout [get]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var idToken string

	if session, ok := middleware.SessionFrom(r.Context()); ok {
		if session.Tokens != nil {
			idToken = session.Tokens.IDToken
		}
		if err := h.sessions.Destroy(r.Context(), session.ID); err != nil {
			log.Error().Err(err).Msg("Failed to destroy session at logout")
		}
	}

	utils.ClearSessionCookie(w, h.cookieName)
	http.Redirect(w, r, h.identity.EndSessionURL(idToken), http.StatusFound)
}
