package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/diegcard-arep/arep-microservicios/internal/models"
	"github.com/diegcard-arep/arep-microservicios/internal/upstream"
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

// Mock implementations for testing

type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockIdentityService) AuthorizationURL(state, nonce string) (string, error) {
	args := m.Called(state, nonce)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityService) CompleteLogin(ctx context.Context, expectedState, expectedNonce, state, code string) (*models.IdentityClaims, *models.TokenSet, error) {
	args := m.Called(ctx, expectedState, expectedNonce, state, code)
	var claims *models.IdentityClaims
	var tokens *models.TokenSet
	if args.Get(0) != nil {
		claims = args.Get(0).(*models.IdentityClaims)
	}
	if args.Get(1) != nil {
		tokens = args.Get(1).(*models.TokenSet)
	}
	return claims, tokens, args.Error(2)
}

func (m *MockIdentityService) EndSessionURL(idTokenHint string) string {
	args := m.Called(idTokenHint)
	return args.String(0)
}

type MockSessionManager struct {
	mock.Mock
}

func (m *MockSessionManager) Create(ctx context.Context, state, nonce, deviceInfo, ipAddress string) (*models.Session, error) {
	args := m.Called(ctx, state, nonce, deviceInfo, ipAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionManager) SetLoginAttempt(ctx context.Context, sessionID, state, nonce string) error {
	args := m.Called(ctx, sessionID, state, nonce)
	return args.Error(0)
}

func (m *MockSessionManager) SetIdentity(ctx context.Context, sessionID string, claims *models.IdentityClaims, tokens *models.TokenSet) error {
	args := m.Called(ctx, sessionID, claims, tokens)
	return args.Error(0)
}

func (m *MockSessionManager) Destroy(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionManager) TTL() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

type MockUserResolver struct {
	mock.Mock
}

func (m *MockUserResolver) Resolve(ctx context.Context, session *models.Session) (*models.User, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserResolver) Remember(ctx context.Context, session *models.Session, user *models.User) {
	m.Called(ctx, session, user)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, accessToken string, req upstream.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, accessToken, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByUsername(ctx context.Context, accessToken, username string) (*models.User, error) {
	args := m.Called(ctx, accessToken, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) Create(ctx context.Context, accessToken, userID, username, content string) (*models.Post, error) {
	args := m.Called(ctx, accessToken, userID, username, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) Like(ctx context.Context, accessToken, postID, userID string) error {
	args := m.Called(ctx, accessToken, postID, userID)
	return args.Error(0)
}

func (m *MockPostService) Unlike(ctx context.Context, accessToken, postID, userID string) error {
	args := m.Called(ctx, accessToken, postID, userID)
	return args.Error(0)
}

func (m *MockPostService) AddComment(ctx context.Context, accessToken, postID, userID, username, content string) (*models.Comment, error) {
	args := m.Called(ctx, accessToken, postID, userID, username, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockPostService) ListComments(ctx context.Context, accessToken, postID string) ([]models.Comment, error) {
	args := m.Called(ctx, accessToken, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Comment), args.Error(1)
}

type MockStreamService struct {
	mock.Mock
}

func (m *MockStreamService) Personal(ctx context.Context, accessToken, userID string, page utils.PageParams) (*models.Timeline, error) {
	args := m.Called(ctx, accessToken, userID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Timeline), args.Error(1)
}

func (m *MockStreamService) Global(ctx context.Context, accessToken, userID string, page utils.PageParams) (*models.Timeline, error) {
	args := m.Called(ctx, accessToken, userID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Timeline), args.Error(1)
}

func (m *MockStreamService) User(ctx context.Context, accessToken, targetUserID, currentUserID string, page utils.PageParams) (*models.Timeline, error) {
	args := m.Called(ctx, accessToken, targetUserID, currentUserID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Timeline), args.Error(1)
}
