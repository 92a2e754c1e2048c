package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diegcard-arep/arep-microservicios/internal/middleware"
	"github.com/diegcard-arep/arep-microservicios/internal/models"
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

// Content length caps enforced before any downstream call.
const (
	maxPostLength    = 140
	maxCommentLength = 280
)

// PostService defines the interface for post-service operations the
// handler needs. Implemented by upstream.PostClient.
type PostService interface {
	Create(ctx context.Context, accessToken, userID, username, content string) (*models.Post, error)
	Like(ctx context.Context, accessToken, postID, userID string) error
	Unlike(ctx context.Context, accessToken, postID, userID string) error
	AddComment(ctx context.Context, accessToken, postID, userID, username, content string) (*models.Comment, error)
	ListComments(ctx context.Context, accessToken, postID string) ([]models.Comment, error)
}

// PostHandler proxies post, like, and comment operations to the post
// service. Every operation acts on behalf of the session's resolved
// application user; an authenticated identity without a registered
// user gets 404 before anything reaches the post service.
type PostHandler struct {
	posts    PostService
	resolver UserResolver
}

// NewPostHandler creates the post handler.
func NewPostHandler(posts PostService, resolver UserResolver) *PostHandler {
	return &PostHandler{
		posts:    posts,
		resolver: resolver,
	}
}

// actingUser resolves the application user for the request, or writes
// the error response and returns nil.
func (h *PostHandler) actingUser(w http.ResponseWriter, r *http.Request) (*models.Session, *models.User) {
	session, _ := middleware.SessionFrom(r.Context())

	user, err := h.resolver.Resolve(r.Context(), session)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return nil, nil
	}
	return session, user
}

// contentRequest is the shared body shape of post and comment creation.
type contentRequest struct {
	Content string `json:"content"`
}

// Create publishes a new post.
//
// Content is required and capped at 140 characters; whitespace-only
// content is rejected. The created post is relayed back as the post
// service returned it.
//
// @Summary      Create post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Success      200  {object}  models.Post
// @Failure      400  {object}  utils.ErrorResponse  "Missing or oversized content"
// @Failure      401  {object}  utils.ErrorResponse
// @Failure      404  {object}  utils.ErrorResponse  "Identity not registered"
// @Router       /api/posts [post]
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		utils.RespondWithAPIError(w, r, models.NewValidationError("content", "must not be empty"))
		return
	}
	if len([]rune(req.Content)) > maxPostLength {
		utils.RespondWithAPIError(w, r, models.NewValidationError("content", "must be at most 140 characters"))
		return
	}

	session, user := h.actingUser(w, r)
	if user == nil {
		return
	}

	post, err := h.posts.Create(r.Context(), session.Tokens.AccessToken, user.ID, user.Username, req.Content)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, post)
}

// Like marks a post as liked by the acting user.
//
// @Summary      Like post
// @Tags         posts
// @Produce      json
// @Success      200  {object}  map[string]bool  "{\"success\": true}"
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/posts/{id}/like [post]
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	session, user := h.actingUser(w, r)
	if user == nil {
		return
	}

	postID := chi.URLParam(r, "id")
	if err := h.posts.Like(r.Context(), session.Tokens.AccessToken, postID, user.ID); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// Unlike removes the acting user's like from a post.
//
// @Summary      Unlike post
// @Tags         posts
// @Produce      json
// @Success      200  {object}  map[string]bool  "{\"success\": true}"
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/posts/{id}/unlike [post]
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	session, user := h.actingUser(w, r)
	if user == nil {
		return
	}

	postID := chi.URLParam(r, "id")
	if err := h.posts.Unlike(r.Context(), session.Tokens.AccessToken, postID, user.ID); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// commentResponse wraps a created comment the way the frontend
// expects it.
type commentResponse struct {
	Success bool            `json:"success"`
	Comment *models.Comment `json:"comment"`
}

// commentsResponse wraps a comment listing.
type commentsResponse struct {
	Success  bool             `json:"success"`
	Comments []models.Comment `json:"comments"`
}

// AddComment attaches a comment to a post.
//
// Comment content is capped at 280 characters.
//
// @Summary      Add comment
// @Tags         posts
// @Accept       json
// @Produce      json
// @Success      200  {object}  commentResponse
// @Failure      400  {object}  utils.ErrorResponse  "Missing or oversized content"
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/posts/{id}/comments [post]
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		utils.RespondWithAPIError(w, r, models.NewValidationError("content", "must not be empty"))
		return
	}
	if len([]rune(req.Content)) > maxCommentLength {
		utils.RespondWithAPIError(w, r, models.NewValidationError("content", "must be at most 280 characters"))
		return
	}

	session, user := h.actingUser(w, r)
	if user == nil {
		return
	}

	postID := chi.URLParam(r, "id")
	comment, err := h.posts.AddComment(r.Context(), session.Tokens.AccessToken, postID, user.ID, user.Username, req.Content)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, commentResponse{Success: true, Comment: comment})
}

// ListComments returns a post's comments.
//
// @Summary      List comments
// @Tags         posts
// @Produce      json
// @Success      200  {object}  commentsResponse
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/posts/{id}/comments [get]
func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	session, user := h.actingUser(w, r)
	if user == nil {
		return
	}

	postID := chi.URLParam(r, "id")
	comments, err := h.posts.ListComments(r.Context(), session.Tokens.AccessToken, postID)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}

	if comments == nil {
		comments = []models.Comment{}
	}

	utils.RespondWithJSON(w, r, http.StatusOK, commentsResponse{Success: true, Comments: comments})
}
