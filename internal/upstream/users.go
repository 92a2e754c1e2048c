package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
)

// UserClient calls the downstream user service, the owner of
// application user profiles.
type UserClient struct {
	*client
}

// NewUserClient creates a client for the user service.
//
// Example:
//
//	users := upstream.NewUserClient(cfg.Upstream.UserServiceURL, cfg.Upstream.Timeout)
func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{
		client: newClient("user", baseURL, timeout),
	}
}

// ResolveBySubject looks up the application user registered for a
// provider subject identifier.
//
// Returns models.ErrUserNotRegistered when the user service answers
// 404: a valid identity that has not completed registration yet. This
// is control flow for the auth state machine, not a failure.
func (c *UserClient) ResolveBySubject(ctx context.Context, accessToken, sub string) (*models.User, error) {
	var user models.User
	err := c.call(ctx, "resolve-by-subject", http.MethodGet,
		"/api/users/cognito/"+url.PathEscape(sub), nil, accessToken, nil, &user)
	if err != nil {
		var upstreamErr *models.UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("subject %s: %w", sub, models.ErrUserNotRegistered)
		}
		return nil, err
	}
	return &user, nil
}

// RegisterRequest is the registration payload sent to the user
// service. The gateway fills in the identity fields from the session;
// the browser only chooses username and bio.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	CognitoSub      string `json:"cognitoSub"`
	Bio             string `json:"bio"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// Register creates the application user for an authenticated identity.
func (c *UserClient) Register(ctx context.Context, accessToken string, req RegisterRequest) (*models.User, error) {
	var user models.User
	err := c.call(ctx, "register", http.MethodPost,
		"/api/users/register", nil, accessToken, req, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername fetches a public profile by username.
func (c *UserClient) GetByUsername(ctx context.Context, accessToken, username string) (*models.User, error) {
	var user models.User
	err := c.call(ctx, "get-by-username", http.MethodGet,
		"/api/users/username/"+url.PathEscape(username), nil, accessToken, nil, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
