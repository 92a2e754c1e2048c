package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diegcard-arep/arep-microservicios/internal/middleware"
	"github.com/diegcard-arep/arep-microservicios/internal/models"
	"github.com/diegcard-arep/arep-microservicios/internal/upstream"
	"github.com/diegcard-arep/arep-microservicios/pkg/cache"
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

// usernamePattern is the gateway-side username rule: word characters
// only, 3 to 50 long. The user service enforces uniqueness; format is
// rejected here before any downstream call.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)

const maxBioLength = 200

// UserService defines the interface for user-service operations the
// handler needs. Implemented by upstream.UserClient.
type UserService interface {
	Register(ctx context.Context, accessToken string, req upstream.RegisterRequest) (*models.User, error)
	GetByUsername(ctx context.Context, accessToken, username string) (*models.User, error)
}

// UserHandler proxies user profile operations to the user service.
// The user service owns the data; the gateway contributes the identity
// (taken from the session, never from browser input), input
// validation, and a short-lived profile cache.
type UserHandler struct {
	users      UserService
	resolver   UserResolver
	cache      *cache.Cache
	profileTTL time.Duration
	cacheOn    bool
}

// NewUserHandler creates the user handler.
//
// The cache is optional; pass nil to disable profile caching (tests do
// this).
func NewUserHandler(users UserService, resolver UserResolver, profileCache *cache.Cache, profileTTL time.Duration) *UserHandler {
	return &UserHandler{
		users:      users,
		resolver:   resolver,
		cache:      profileCache,
		profileTTL: profileTTL,
		cacheOn:    profileCache != nil && profileTTL > 0,
	}
}

// Current returns the application user of the authenticated session.
//
// Answers 404 when the identity has no application user yet; the
// frontend uses that as the "go register" signal.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      401  {object}  utils.ErrorResponse
// @Failure      404  {object}  utils.ErrorResponse  "Identity not registered"
// @Router       /api/users/current [get]
func (h *UserHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFrom(r.Context())

	user, err := h.resolver.Resolve(r.Context(), session)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, user)
}

// registerRequest is the browser's registration payload. Identity
// fields (email, subject) are deliberately absent: they come from the
// session.
type registerRequest struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
}

// Register creates the application user for the session's identity.
//
// Validation happens before the downstream call: username must match
// the 3-50 word-character rule, bio is capped at 200 characters.
// Username collisions are the user service's call; its 409 is relayed
// as-is.
//
// @Summary      Register application user
// @Tags         users
// @Accept       json
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      400  {object}  utils.ErrorResponse  "Invalid username or bio"
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/users/register [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFrom(r.Context())

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !usernamePattern.MatchString(req.Username) {
		utils.RespondWithAPIError(w, r, models.NewValidationError("username",
			"must be 3-50 characters: letters, digits, underscore"))
		return
	}
	if len(req.Bio) > maxBioLength {
		utils.RespondWithAPIError(w, r, models.NewValidationError("bio",
			"must be at most 200 characters"))
		return
	}

	user, err := h.users.Register(r.Context(), session.Tokens.AccessToken, upstream.RegisterRequest{
		Username:        req.Username,
		Email:           session.Claims.Email,
		CognitoSub:      session.Claims.Sub,
		Bio:             req.Bio,
		ProfileImageURL: "",
	})
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}

	h.resolver.Remember(r.Context(), session, user)

	utils.RespondWithJSON(w, r, http.StatusOK, user)
}

// ByUsername returns a public profile by username, cached briefly so
// repeated profile views skip the user service.
//
// A cache failure falls through to the downstream call; the cache is
// an optimization, never a dependency.
//
// @Summary      Profile by username
// @Tags         users
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      401  {object}  utils.ErrorResponse
// @Failure      404  {object}  utils.ErrorResponse
// @Router       /api/users/username/{username} [get]
func (h *UserHandler) ByUsername(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFrom(r.Context())
	username := chi.URLParam(r, "username")

	if h.cacheOn {
		var cached models.User
		if err := h.cache.Get(r.Context(), cache.ProfileKey(username), &cached); err == nil {
			utils.RespondWithJSON(w, r, http.StatusOK, &cached)
			return
		}
	}

	user, err := h.users.GetByUsername(r.Context(), session.Tokens.AccessToken, username)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}

	if h.cacheOn {
		// Best effort; a failed write only costs the next lookup.
		_ = h.cache.Set(r.Context(), cache.ProfileKey(username), user, h.profileTTL)
	}

	utils.RespondWithJSON(w, r, http.StatusOK, user)
}
