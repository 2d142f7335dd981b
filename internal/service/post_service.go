package service

import (
	"context"
	"strings"

	"lattice/internal/cursor"
	"lattice/internal/models"
	"lattice/internal/repository"
	"lattice/internal/validation"
)

// Viewer is the part of PrivacyService that content services need.
type Viewer interface {
	CanView(ctx context.Context, viewerID, ownerID uint) (bool, error)
}

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	privacy  Viewer
}

type CreatePostInput struct {
	AuthorID uint
	Content  string
}

type ListUserPostsInput struct {
	ViewerID  uint
	ProfileID uint
	Limit     int
	Cursor    string
}

type UpdatePostInput struct {
	UserID  uint
	PostID  string
	Content string
}

type DeletePostInput struct {
	UserID uint
	PostID string
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, privacy Viewer) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		privacy:  privacy,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if err := validation.ValidatePostContent(content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	author, err := s.userRepo.GetByID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Content:        content,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListUserPosts pages through ProfileID's posts if the viewer may see them.
func (s *PostService) ListUserPosts(ctx context.Context, in ListUserPostsInput) (*models.PostPage, error) {
	limit, err := normalizeLimit(in.Limit)
	if err != nil {
		return nil, err
	}
	before, err := decodeCursor(in.Cursor)
	if err != nil {
		return nil, err
	}

	if err := s.requireView(ctx, in.ViewerID, in.ProfileID); err != nil {
		return nil, err
	}

	posts, err := s.postRepo.ListByAuthor(ctx, in.ProfileID, before, limit+1)
	if err != nil {
		return nil, err
	}

	hasNext := len(posts) > limit
	if hasNext {
		posts = posts[:limit]
	}
	page := &models.PostPage{Posts: posts}
	if page.Posts == nil {
		page.Posts = []models.Post{}
	}
	if len(posts) > 0 {
		last := posts[len(posts)-1]
		page.NextCursor = cursor.Next(hasNext, cursor.Position{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// GetPost returns a single post subject to the author's privacy.
func (s *PostService) GetPost(ctx context.Context, viewerID uint, postID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.requireView(ctx, viewerID, post.AuthorID); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if err := validation.ValidatePostContent(content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only edit your own posts")
	}

	post.Content = content
	post.IsEdited = true
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if post.AuthorID != in.UserID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, in.PostID)
}

func (s *PostService) requireView(ctx context.Context, viewerID, ownerID uint) error {
	allowed, err := s.privacy.CanView(ctx, viewerID, ownerID)
	if err != nil {
		return err
	}
	if !allowed {
		return models.NewUnauthorizedError("This account is private")
	}
	return nil
}
