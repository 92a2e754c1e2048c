// Package models defines the core domain models for the gateway.
// These models represent the two halves of the gateway's state: the
// identity side (sessions, provider claims, token sets) owned by this
// service, and the application side (users, posts, comments, timelines)
// owned by the downstream microservices and only mirrored here.
//
// Sensitive fields carry `json:"-"` so a serialized model can never leak
// tokens into an API response or a log line.
package models

import "time"

// IdentityClaims holds the subset of OpenID Connect claims the gateway
// cares about. These are mirrored from the identity provider and never
// owned by this system; Sub is the provider-issued, immutable subject
// identifier.
//
// JSON example:
//
//	{
//	  "sub": "a1b2c3d4-0000-4000-8000-1234567890ab",
//	  "email": "user@example.com"
//	}
type IdentityClaims struct {
	Sub   string `json:"sub"`   // Provider subject identifier (globally unique per provider)
	Email string `json:"email"` // Email address asserted by the provider
}

// TokenSet holds the tokens obtained from the authorization-code
// exchange. The access token authorizes downstream calls on the user's
// behalf; the ID token is kept only as a logout hint.
//
// All fields are excluded from JSON serialization: a TokenSet must never
// appear in an API response.
type TokenSet struct {
	AccessToken  string    `json:"-"` // Bearer token forwarded to downstream services
	IDToken      string    `json:"-"` // ID token, used as id_token_hint at logout
	RefreshToken string    `json:"-"` // Optional refresh token (unused by the gateway itself)
	ExpiresAt    time.Time `json:"-"` // Access token expiry as reported by the provider
}

// Session is the gateway's per-browser authentication record, referenced
// by a signed cookie and stored server-side in Redis with a fixed
// 24-hour lifetime.
//
// Lifecycle of the fields:
//   - Nonce and State are written at login initiation and consumed at
//     the provider callback; they are meaningless afterwards.
//   - Claims and Tokens are written at a successful callback and persist
//     until logout or expiry.
//   - User is the lazily resolved Application User, cached after the
//     first successful lookup and invalidated on logout.
//
// "Authenticated with the identity provider" (Claims+Tokens present) and
// "registered application user" (User present) are two independent
// states; see Authenticated and Registered.
type Session struct {
	ID         string          `json:"id"`
	Nonce      string          `json:"-"` // One-time value bound to a single login attempt
	State      string          `json:"-"` // CSRF-binding value bound to a single login attempt
	Claims     *IdentityClaims `json:"claims,omitempty"`
	Tokens     *TokenSet       `json:"-"`
	User       *User           `json:"user,omitempty"` // Resolved Application User (nil until fetched)
	DeviceInfo string          `json:"device_info,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// Authenticated reports whether the session holds a complete identity:
// provider claims plus a usable access token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Claims != nil && s.Tokens != nil && s.Tokens.AccessToken != ""
}

// Registered reports whether the Application User has been resolved for
// this session. A session can be Authenticated without being Registered
// (identity established, no application profile yet).
func (s *Session) Registered() bool {
	return s.Authenticated() && s.User != nil
}

// User is the application-level profile record owned by the downstream
// user service. The gateway only reads or creates it over HTTP and
// caches the result on the Session.
//
// JSON example (as relayed from the user service):
//
//	{
//	  "id": "665f1c2ab3e4d5f6a7b8c9d0",
//	  "username": "ada_l",
//	  "email": "ada@example.com",
//	  "bio": "systems and gardens",
//	  "profileImageUrl": "",
//	  "followersCount": 12,
//	  "followingCount": 34
//	}
type User struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	Bio             string     `json:"bio,omitempty"`
	ProfileImageURL string     `json:"profileImageUrl,omitempty"`
	Followers       []string   `json:"followers,omitempty"`
	Following       []string   `json:"following,omitempty"`
	FollowersCount  int        `json:"followersCount"`
	FollowingCount  int        `json:"followingCount"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

// Post is a feed entry owned by the downstream post service.
type Post struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	Username           string     `json:"username"`
	Content            string     `json:"content"`
	Likes              []string   `json:"likes,omitempty"`
	LikesCount         int        `json:"likesCount"`
	Comments           []Comment  `json:"comments,omitempty"`
	CommentsCount      int        `json:"commentsCount"`
	LikedByCurrentUser bool       `json:"likedByCurrentUser"`
	CreatedAt          *time.Time `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
}

// Comment is a reply attached to a Post, owned by the post service.
type Comment struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Username  string     `json:"username"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Timeline is a page of posts as returned by the stream service.
type Timeline struct {
	Posts         []Post `json:"posts"`
	Page          int    `json:"page"`
	Size          int    `json:"size"`
	TotalElements int64  `json:"totalElements"`
	TotalPages    int    `json:"totalPages"`
}
