package service

import (
	"context"
	"strings"

	"lattice/internal/cursor"
	"lattice/internal/models"
	"lattice/internal/repository"
	"lattice/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	privacy     Viewer
}

type CreateCommentInput struct {
	UserID          uint
	PostID          string
	Comment         string
	ParentCommentID *string
}

type ListCommentsInput struct {
	ViewerID uint
	PostID   string
	Limit    int
	Cursor   string
}

type ListRepliesInput struct {
	ViewerID  uint
	CommentID string
	Limit     int
	Cursor    string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID string
	Comment   string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID string
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository, privacy Viewer) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		privacy:     privacy,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	text := strings.TrimSpace(in.Comment)
	if err := validation.ValidateComment(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post, err := s.visiblePost(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}

	var parentID *string
	if in.ParentCommentID != nil && *in.ParentCommentID != "" {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
		parentID = &parent.ID
	}

	comment := &models.Comment{
		PostID:          post.ID,
		AuthorID:        in.UserID,
		ParentCommentID: parentID,
		Comment:         text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments pages through the top-level comments of a post.
func (s *CommentService) ListComments(ctx context.Context, in ListCommentsInput) (*models.CommentPage, error) {
	limit, err := normalizeLimit(in.Limit)
	if err != nil {
		return nil, err
	}
	before, err := decodeCursor(in.Cursor)
	if err != nil {
		return nil, err
	}

	post, err := s.visiblePost(ctx, in.ViewerID, in.PostID)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByPost(ctx, post.ID, before, limit+1)
	if err != nil {
		return nil, err
	}
	return commentPage(comments, limit), nil
}

// ListReplies pages through the direct replies to a comment.
func (s *CommentService) ListReplies(ctx context.Context, in ListRepliesInput) (*models.CommentPage, error) {
	limit, err := normalizeLimit(in.Limit)
	if err != nil {
		return nil, err
	}
	before, err := decodeCursor(in.Cursor)
	if err != nil {
		return nil, err
	}

	parent, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(ctx, in.ViewerID, parent.PostID); err != nil {
		return nil, err
	}

	replies, err := s.commentRepo.ListReplies(ctx, parent.ID, before, limit+1)
	if err != nil {
		return nil, err
	}
	return commentPage(replies, limit), nil
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	text := strings.TrimSpace(in.Comment)
	if err := validation.ValidateComment(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only edit your own comments")
	}

	comment.Comment = text
	comment.IsEdited = true
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != in.UserID {
		return models.NewUnauthorizedError("You can only delete your own comments")
	}
	return s.commentRepo.Delete(ctx, in.CommentID)
}

// visiblePost loads the post and checks the viewer may see its author.
func (s *CommentService) visiblePost(ctx context.Context, viewerID uint, postID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.privacy.CanView(ctx, viewerID, post.AuthorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, models.NewUnauthorizedError("This account is private")
	}
	return post, nil
}

func commentPage(rows []models.Comment, limit int) *models.CommentPage {
	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	page := &models.CommentPage{Comments: rows}
	if page.Comments == nil {
		page.Comments = []models.Comment{}
	}
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = cursor.Next(hasNext, cursor.Position{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page
}
