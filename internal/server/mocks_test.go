package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lattice/internal/config"
	"lattice/internal/cursor"
	"lattice/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetForUpdate(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) IsPrivate(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Register(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) SetPrivacy(ctx context.Context, id uint, private bool) error {
	args := m.Called(ctx, id, private)
	return args.Error(0)
}

// MockPostRepository is a mock of the PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) ListByAuthor(ctx context.Context, authorID uint, before *cursor.Position, limit int) ([]models.Post, error) {
	args := m.Called(ctx, authorID, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockFollowRepository is a mock of the FollowRepository interface
type MockFollowRepository struct {
	mock.Mock
}

func (m *MockFollowRepository) InsertIfAbsent(ctx context.Context, edge *models.Follow) (bool, error) {
	args := m.Called(ctx, edge)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) Get(ctx context.Context, followerID, followeeID uint) (*models.Follow, error) {
	args := m.Called(ctx, followerID, followeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Follow), args.Error(1)
}

func (m *MockFollowRepository) Accept(ctx context.Context, followerID, followeeID uint) (bool, error) {
	args := m.Called(ctx, followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) Delete(ctx context.Context, followerID, followeeID uint) (bool, error) {
	args := m.Called(ctx, followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) DeletePending(ctx context.Context, followerID, followeeID uint) (bool, error) {
	args := m.Called(ctx, followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) IsAccepted(ctx context.Context, followerID, followeeID uint) (bool, error) {
	args := m.Called(ctx, followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) Following(ctx context.Context, followerID uint) ([]models.Follow, error) {
	args := m.Called(ctx, followerID)
	return args.Get(0).([]models.Follow), args.Error(1)
}

func (m *MockFollowRepository) Followers(ctx context.Context, followeeID uint) ([]models.Follow, error) {
	args := m.Called(ctx, followeeID)
	return args.Get(0).([]models.Follow), args.Error(1)
}

func (m *MockFollowRepository) PendingRequests(ctx context.Context, followeeID uint) ([]models.Follow, error) {
	args := m.Called(ctx, followeeID)
	return args.Get(0).([]models.Follow), args.Error(1)
}

// MockFeedRepository is a mock of the FeedRepository interface
type MockFeedRepository struct {
	mock.Mock
}

func (m *MockFeedRepository) ListForViewer(ctx context.Context, viewerID uint, before *cursor.Position, limit int) ([]models.FeedPost, error) {
	args := m.Called(ctx, viewerID, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FeedPost), args.Error(1)
}

const testJWTSecret = "test-secret-key-12345678901234567890123456789012"

type testServer struct {
	srv      *Server
	app      *fiber.App
	users    *MockUserRepository
	posts    *MockPostRepository
	follows  *MockFollowRepository
	feed     *MockFeedRepository
	comments *memoryComments
}

// newTestServer wires mock repositories into a Server without database or Redis.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		users:    new(MockUserRepository),
		posts:    new(MockPostRepository),
		follows:  new(MockFollowRepository),
		feed:     new(MockFeedRepository),
		comments: &memoryComments{},
	}
	cfg := &config.Config{Env: "test", JWTSecret: testJWTSecret, JWTTTLHours: 1}
	ts.srv = newServer(cfg, nil, nil, Repositories{
		Users:    ts.users,
		Posts:    ts.posts,
		Comments: ts.comments,
		Follows:  ts.follows,
		Feed:     ts.feed,
	})
	ts.app = ts.srv.App()
	return ts
}

func (ts *testServer) token(t *testing.T, userID uint) string {
	t.Helper()
	tok, _, err := ts.srv.tokens.Issue(userID, "tester")
	require.NoError(t, err)
	return tok
}

// do sends a request as userID (0 for anonymous) and decodes a JSON body into out when non-nil.
func (ts *testServer) do(t *testing.T, method, path string, userID uint, body any, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+ts.token(t, userID))
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// memoryComments is a CommentRepository keyed by id.
type memoryComments struct {
	byID map[string]*models.Comment
}

func (m *memoryComments) Create(_ context.Context, c *models.Comment) error {
	if m.byID == nil {
		m.byID = map[string]*models.Comment{}
	}
	if c.ID == "" {
		c.ID = "0b4c5f38-5a26-4d55-9b36-8f2d9c1c0a01"
	}
	m.byID[c.ID] = c
	return nil
}

func (m *memoryComments) GetByID(_ context.Context, id string) (*models.Comment, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, models.NewNotFoundError("Comment", id)
}

func (m *memoryComments) ListByPost(_ context.Context, postID string, _ *cursor.Position, _ int) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range m.byID {
		if c.PostID == postID && c.ParentCommentID == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryComments) ListReplies(_ context.Context, parentID string, _ *cursor.Position, _ int) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range m.byID {
		if c.ParentCommentID != nil && *c.ParentCommentID == parentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryComments) Update(_ context.Context, c *models.Comment) error {
	m.byID[c.ID] = c
	return nil
}

func (m *memoryComments) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}
