package server

import (
	"net/http"
	"testing"
	"time"

	"lattice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPostID = "9f0c3c52-3bb4-4b6e-9f4e-0c1d2e3f4a5b"

func TestCreatePost(t *testing.T) {
	ts := newTestServer(t)
	ts.users.On("GetByID", mock.Anything, uint(1)).Return(&models.User{ID: 1, Username: "author_1"}, nil)
	ts.posts.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
		return p.AuthorID == 1 && p.Content == "hello world"
	})).Return(nil).Once()

	var post models.Post
	resp := ts.do(t, http.MethodPost, "/api/posts", 1, map[string]string{"content": " hello world "}, &post)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "author_1", post.AuthorUsername)

	var errBody models.ErrorResponse
	resp = ts.do(t, http.MethodPost, "/api/posts", 1, map[string]string{"content": "tiny"}, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, errBody.Code)

	resp = ts.do(t, http.MethodPost, "/api/posts", 0, map[string]string{"content": "hello world"}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, models.CodeUnauthenticated, errBody.Code)

	ts.posts.AssertExpectations(t)
}

func TestGetUserPosts_PrivateProfile(t *testing.T) {
	ts := newTestServer(t)
	ts.users.On("IsPrivate", mock.Anything, uint(2)).Return(true, nil)
	ts.follows.On("IsAccepted", mock.Anything, uint(1), uint(2)).Return(false, nil)

	var body models.ErrorResponse
	resp := ts.do(t, http.MethodGet, "/api/users/2/posts", 1, nil, &body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeUnauthorized, body.Code)
	ts.posts.AssertNotCalled(t, "ListByAuthor", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetUserPosts_Paginates(t *testing.T) {
	ts := newTestServer(t)
	ts.users.On("IsPrivate", mock.Anything, uint(2)).Return(false, nil)

	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := make([]models.Post, 6)
	for i := range rows {
		rows[i] = models.Post{ID: string(rune('f' - i)), AuthorID: 2, CreatedAt: base.Add(-time.Duration(i) * time.Minute)}
	}
	ts.posts.On("ListByAuthor", mock.Anything, uint(2), mock.Anything, 6).Return(rows, nil)

	var page models.PostPage
	resp := ts.do(t, http.MethodGet, "/api/users/2/posts?limit=5", 1, nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, page.Posts, 5)
	require.NotNil(t, page.NextCursor)

	resp = ts.do(t, http.MethodGet, "/api/users/2/posts?limit=50", 1, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/users/2/posts?cursor=@@@", 1, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateAndDeletePost_OwnerOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.posts.On("GetByID", mock.Anything, testPostID).Return(&models.Post{ID: testPostID, AuthorID: 1, Content: "original"}, nil)
	ts.posts.On("Update", mock.Anything, mock.Anything).Return(nil)
	ts.posts.On("Delete", mock.Anything, testPostID).Return(nil)

	resp := ts.do(t, http.MethodPatch, "/api/posts/"+testPostID, 2, map[string]string{"content": "not my post"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var post models.Post
	resp = ts.do(t, http.MethodPatch, "/api/posts/"+testPostID, 1, map[string]string{"content": "edited content"}, &post)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, post.IsEdited)

	resp = ts.do(t, http.MethodDelete, "/api/posts/"+testPostID, 2, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = ts.do(t, http.MethodDelete, "/api/posts/"+testPostID, 1, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	ts.posts.AssertNumberOfCalls(t, "Delete", 1)
}

func TestGetPost_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.posts.On("GetByID", mock.Anything, testPostID).Return(nil, models.NewNotFoundError("Post", testPostID))

	resp := ts.do(t, http.MethodGet, "/api/posts/"+testPostID, 1, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/posts/123", 1, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestComments(t *testing.T) {
	ts := newTestServer(t)
	ts.posts.On("GetByID", mock.Anything, testPostID).Return(&models.Post{ID: testPostID, AuthorID: 1}, nil)

	var created models.Comment
	resp := ts.do(t, http.MethodPost, "/api/posts/"+testPostID+"/comments", 1,
		map[string]string{"comment": "first comment"}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, testPostID, created.PostID)

	var page models.CommentPage
	resp = ts.do(t, http.MethodGet, "/api/posts/"+testPostID+"/comments", 1, nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, page.Comments, 1)
	assert.Nil(t, page.NextCursor)

	resp = ts.do(t, http.MethodPatch, "/api/comments/"+created.ID, 9, map[string]string{"comment": "hijacked comment"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/api/comments/"+created.ID, 1, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
