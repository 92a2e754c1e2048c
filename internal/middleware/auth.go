// Package middleware provides HTTP middleware components for the
// gateway. Middleware functions wrap HTTP handlers to provide
// cross-cutting concerns like session authentication, logging,
// metrics, and rate limiting.
//
// Middleware in this package:
//   - Session attachment and enforcement for the cookie-based auth flow
//   - Structured request/response logging with correlation IDs
//   - Prometheus metrics collection
//   - Rate limiting per IP address
//
// All middleware is designed to be composable with Chi router.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
	"github.com/diegcard-arep/arep-microservicios/internal/services"
	"github.com/diegcard-arep/arep-microservicios/pkg/config"
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// sessionKey is the context key for the attached session.
// Set by Attach after a valid session cookie is loaded.
const sessionKey contextKey = "session"

// Auth provides session-based authentication middleware. It owns the
// translation from the signed session cookie to a loaded session.
//
// Two layers compose the auth model:
//   - Attach runs on every request and is best-effort: a valid cookie
//     puts the session in the context, anything else leaves the request
//     anonymous. It never rejects.
//   - RequireAuth runs on protected routes and rejects requests whose
//     context carries no authenticated session.
type Auth struct {
	sessions   *services.SessionService
	cookieName string
	secret     []byte
}

// NewAuth creates the auth middleware from the session service and
// cookie configuration.
//
// Example:
//
//	auth := middleware.NewAuth(sessionSvc, &cfg.Session)
//	r.Use(auth.Attach)
//	r.Group(func(r chi.Router) {
//	    r.Use(auth.RequireAuth)
//	    r.Post("/api/posts", postHandler.Create)
//	})
func NewAuth(sessions *services.SessionService, cfg *config.SessionConfig) *Auth {
	return &Auth{
		sessions:   sessions,
		cookieName: cfg.CookieName,
		secret:     cfg.Secret,
	}
}

// Attach loads the session referenced by the request's cookie, if any,
// and puts it in the request context. Requests without a cookie, with
// a tampered cookie, or referencing an expired session proceed as
// anonymous; a bad cookie is never an error, only an absence.
//
// A Redis outage also degrades to anonymous rather than failing the
// request: public routes keep working, protected routes answer 401.
func (a *Auth) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(a.cookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		sessionID, ok := utils.VerifySessionCookie(cookie.Value, a.secret)
		if !ok {
			log.Warn().Msg("Session cookie failed signature check")
			utils.ClearSessionCookie(w, a.cookieName)
			next.ServeHTTP(w, r)
			return
		}

		session, err := a.sessions.Get(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, models.ErrSessionNotFound) {
				utils.ClearSessionCookie(w, a.cookieName)
			} else {
				log.Error().Err(err).Msg("Session load failed, treating request as anonymous")
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests whose session is missing or not
// authenticated with the identity provider. Must run after Attach.
//
// Note the distinction: a session that exists but has not completed
// the provider callback is still anonymous here. Registration status
// is not checked; handlers that need the application user resolve it
// themselves and answer 404 for unregistered identities.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFrom(r.Context())
		if !ok || !session.Authenticated() {
			utils.RespondWithAPIError(w, r, models.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFrom extracts the attached session from the request context.
// Returns the session and a boolean indicating whether one was
// attached.
//
// Example:
//
//	session, ok := middleware.SessionFrom(r.Context())
//	if !ok {
//	    // Anonymous request
//	}
func SessionFrom(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionKey).(*models.Session)
	return session, ok && session != nil
}

// WithSession returns a context carrying the given session.
// Exported for handler tests that bypass the middleware chain.
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}
