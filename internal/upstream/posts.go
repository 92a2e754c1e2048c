package upstream

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
)

// PostClient calls the downstream post service, the owner of posts,
// likes, and comments.
//
// The post service identifies the acting user through userId and
// username query parameters; the gateway always fills these from the
// session's resolved user, never from browser input.
type PostClient struct {
	*client
}

// NewPostClient creates a client for the post service.
func NewPostClient(baseURL string, timeout time.Duration) *PostClient {
	return &PostClient{
		client: newClient("post", baseURL, timeout),
	}
}

// Create publishes a new post on behalf of the acting user.
func (c *PostClient) Create(ctx context.Context, accessToken, userID, username, content string) (*models.Post, error) {
	query := url.Values{}
	query.Set("userId", userID)
	query.Set("username", username)

	body := map[string]string{"content": content}

	var post models.Post
	err := c.call(ctx, "create-post", http.MethodPost,
		"/api/posts", query, accessToken, body, &post)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Like marks a post as liked by the acting user.
// Idempotent downstream; liking twice is not an error.
func (c *PostClient) Like(ctx context.Context, accessToken, postID, userID string) error {
	query := url.Values{}
	query.Set("userId", userID)

	return c.call(ctx, "like-post", http.MethodPost,
		"/api/posts/"+url.PathEscape(postID)+"/like", query, accessToken, struct{}{}, nil)
}

// Unlike removes the acting user's like from a post.
func (c *PostClient) Unlike(ctx context.Context, accessToken, postID, userID string) error {
	query := url.Values{}
	query.Set("userId", userID)

	return c.call(ctx, "unlike-post", http.MethodPost,
		"/api/posts/"+url.PathEscape(postID)+"/unlike", query, accessToken, struct{}{}, nil)
}

// AddComment attaches a comment to a post on behalf of the acting user.
func (c *PostClient) AddComment(ctx context.Context, accessToken, postID, userID, username, content string) (*models.Comment, error) {
	query := url.Values{}
	query.Set("userId", userID)
	query.Set("username", username)

	body := map[string]string{"content": content}

	var comment models.Comment
	err := c.call(ctx, "add-comment", http.MethodPost,
		"/api/posts/"+url.PathEscape(postID)+"/comments", query, accessToken, body, &comment)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListComments returns all comments of a post.
func (c *PostClient) ListComments(ctx context.Context, accessToken, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := c.call(ctx, "list-comments", http.MethodGet,
		"/api/posts/"+url.PathEscape(postID)+"/comments", nil, accessToken, nil, &comments)
	if err != nil {
		return nil, err
	}
	return comments, nil
}
