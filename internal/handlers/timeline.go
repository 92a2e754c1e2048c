package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diegcard-arep/arep-microservicios/internal/middleware"
	"github.com/diegcard-arep/arep-microservicios/internal/models"
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

// StreamService defines the interface for stream-service operations
// the handler needs. Implemented by upstream.StreamClient.
type StreamService interface {
	Personal(ctx context.Context, accessToken, userID string, page utils.PageParams) (*models.Timeline, error)
	Global(ctx context.Context, accessToken, userID string, page utils.PageParams) (*models.Timeline, error)
	User(ctx context.Context, accessToken, targetUserID, currentUserID string, page utils.PageParams) (*models.Timeline, error)
}

// TimelineHandler proxies the paginated timeline views to the stream
// service. Pagination is normalized at the gateway (zero-based page,
// default size 20, capped at 100) so the stream service never sees
// out-of-range parameters.
type TimelineHandler struct {
	stream   StreamService
	resolver UserResolver
}

// NewTimelineHandler creates the timeline handler.
func NewTimelineHandler(stream StreamService, resolver UserResolver) *TimelineHandler {
	return &TimelineHandler{
		stream:   stream,
		resolver: resolver,
	}
}

// Personal returns the acting user's personal timeline: posts from
// followed users, newest first.
//
// @Summary      Personal timeline
// @Tags         timeline
// @Produce      json
// @Param        page  query  int  false  "Zero-based page"    default(0)
// @Param        size  query  int  false  "Page size (1-100)"  default(20)
// @Success      200  {object}  models.Timeline
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/timeline/personal [get]
func (h *TimelineHandler) Personal(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, func(ctx context.Context, token, userID string, page utils.PageParams) (*models.Timeline, error) {
		return h.stream.Personal(ctx, token, userID, page)
	})
}

// Global returns the global timeline of all posts.
//
// @Summary      Global timeline
// @Tags         timeline
// @Produce      json
// @Param        page  query  int  false  "Zero-based page"    default(0)
// @Param        size  query  int  false  "Page size (1-100)"  default(20)
// @Success      200  {object}  models.Timeline
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/timeline/global [get]
func (h *TimelineHandler) Global(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, func(ctx context.Context, token, userID string, page utils.PageParams) (*models.Timeline, error) {
		return h.stream.Global(ctx, token, userID, page)
	})
}

// User returns one user's posts as a timeline. The target user comes
// from the path; the acting user still rides along for like
// annotations.
//
// @Summary      User timeline
// @Tags         timeline
// @Produce      json
// @Param        userId  path   string  true   "Target user ID"
// @Param        page    query  int     false  "Zero-based page"    default(0)
// @Param        size    query  int     false  "Page size (1-100)"  default(20)
// @Success      200  {object}  models.Timeline
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/timeline/user/{userId} [get]
func (h *TimelineHandler) User(w http.ResponseWriter, r *http.Request) {
	targetUserID := chi.URLParam(r, "userId")
	h.proxy(w, r, func(ctx context.Context, token, userID string, page utils.PageParams) (*models.Timeline, error) {
		return h.stream.User(ctx, token, targetUserID, userID, page)
	})
}

// proxy factors the shared shape of the three timeline endpoints:
// resolve the acting user, normalize pagination, call the stream
// service, relay the result.
func (h *TimelineHandler) proxy(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, token, userID string, page utils.PageParams) (*models.Timeline, error)) {
	session, user := h.actingUser(w, r)
	if user == nil {
		return
	}

	page := utils.ParsePageParams(r)

	timeline, err := fetch(r.Context(), session.Tokens.AccessToken, user.ID, page)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, timeline)
}

func (h *TimelineHandler) actingUser(w http.ResponseWriter, r *http.Request) (*models.Session, *models.User) {
	session, _ := middleware.SessionFrom(r.Context())

	user, err := h.resolver.Resolve(r.Context(), session)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return nil, nil
	}
	return session, user
}
