package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

// StreamClient calls the downstream stream service, which materializes
// the paginated timeline views over posts.
type StreamClient struct {
	*client
}

// NewStreamClient creates a client for the stream service.
func NewStreamClient(baseURL string, timeout time.Duration) *StreamClient {
	return &StreamClient{
		client: newClient("stream", baseURL, timeout),
	}
}

func pageQuery(page utils.PageParams) url.Values {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Page))
	query.Set("size", strconv.Itoa(page.Size))
	return query
}

// Personal returns the acting user's personal timeline: posts from the
// users they follow, newest first.
func (c *StreamClient) Personal(ctx context.Context, accessToken, userID string, page utils.PageParams) (*models.Timeline, error) {
	query := pageQuery(page)
	query.Set("userId", userID)

	var timeline models.Timeline
	err := c.call(ctx, "personal-timeline", http.MethodGet,
		"/api/timeline/personal", query, accessToken, nil, &timeline)
	if err != nil {
		return nil, err
	}
	return &timeline, nil
}

// Global returns the global timeline of all posts. The acting user's
// ID is still passed so the stream service can mark posts the user has
// liked.
func (c *StreamClient) Global(ctx context.Context, accessToken, userID string, page utils.PageParams) (*models.Timeline, error) {
	query := pageQuery(page)
	query.Set("userId", userID)

	var timeline models.Timeline
	err := c.call(ctx, "global-timeline", http.MethodGet,
		"/api/timeline/global", query, accessToken, nil, &timeline)
	if err != nil {
		return nil, err
	}
	return &timeline, nil
}

// User returns one user's posts as a timeline. currentUserID is the
// acting user, used downstream for like annotations.
func (c *StreamClient) User(ctx context.Context, accessToken, targetUserID, currentUserID string, page utils.PageParams) (*models.Timeline, error) {
	query := pageQuery(page)
	query.Set("currentUserId", currentUserID)

	var timeline models.Timeline
	err := c.call(ctx, "user-timeline", http.MethodGet,
		"/api/timeline/user/"+url.PathEscape(targetUserID), query, accessToken, nil, &timeline)
	if err != nil {
		return nil, err
	}
	return &timeline, nil
}
