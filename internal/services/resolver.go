package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
	"github.com/diegcard-arep/arep-microservicios/internal/upstream"
)

// UserResolver resolves the application user behind an authenticated
// session. Resolution is lazy and memoized: the first request that
// needs the user asks the user service for the profile registered
// under the session's provider subject, then caches it on the session
// so every later request is a session read.
type UserResolver struct {
	sessions *SessionService
	users    *upstream.UserClient
}

// NewUserResolver creates a resolver backed by the session service and
// the user service client.
func NewUserResolver(sessions *SessionService, users *upstream.UserClient) *UserResolver {
	return &UserResolver{
		sessions: sessions,
		users:    users,
	}
}

// Resolve returns the application user for a session.
//
// Error contract:
//   - models.ErrUnauthorized when the session holds no identity
//   - models.ErrUserNotRegistered when the identity has no application
//     user yet (the user service answered 404)
//   - the underlying upstream error otherwise
//
// A write failure while caching the resolved user is logged and
// swallowed; the caller still gets the user and the next request
// simply resolves again.
func (r *UserResolver) Resolve(ctx context.Context, session *models.Session) (*models.User, error) {
	if !session.Authenticated() {
		return nil, models.ErrUnauthorized
	}

	if session.User != nil {
		return session.User, nil
	}

	user, err := r.users.ResolveBySubject(ctx, session.Tokens.AccessToken, session.Claims.Sub)
	if err != nil {
		return nil, err
	}

	if err := r.sessions.SetUser(ctx, session.ID, user); err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to cache resolved user on session")
	}
	session.User = user

	return user, nil
}

// Remember stores a freshly registered application user on the
// session, replacing any previous resolution. Called after a
// successful registration so the very next request sees the user
// without another lookup.
func (r *UserResolver) Remember(ctx context.Context, session *models.Session, user *models.User) {
	if err := r.sessions.SetUser(ctx, session.ID, user); err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to cache registered user on session")
	}
	session.User = user
}
