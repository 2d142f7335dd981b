package repository

import (
	"context"
	"errors"

	"lattice/internal/cursor"
	"lattice/internal/models"
	"lattice/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	// ListByPost returns top-level comments on postID older than before, newest first.
	ListByPost(ctx context.Context, postID string, before *cursor.Position, limit int) ([]models.Comment, error)
	ListReplies(ctx context.Context, parentID string, before *cursor.Position, limit int) ([]models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id string) error
}

type commentRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, metrics: observability.NewDatabaseMetrics("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer r.metrics.TrackQuery("create")()

	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	defer r.metrics.TrackQuery("get_by_id")()

	var comment models.Comment
	if err := readDB(r.db).WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string, before *cursor.Position, limit int) ([]models.Comment, error) {
	defer r.metrics.TrackQuery("list_by_post")()

	q := readDB(r.db).WithContext(ctx).
		Model(&models.Comment{}).
		Where("comments.post_id = ? AND comments.parent_comment_id IS NULL", postID)
	return r.page(q, before, limit)
}

func (r *commentRepository) ListReplies(ctx context.Context, parentID string, before *cursor.Position, limit int) ([]models.Comment, error) {
	defer r.metrics.TrackQuery("list_replies")()

	q := readDB(r.db).WithContext(ctx).
		Model(&models.Comment{}).
		Where("comments.parent_comment_id = ?", parentID)
	return r.page(q, before, limit)
}

func (r *commentRepository) page(q *gorm.DB, before *cursor.Position, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	if err := keysetBefore(q, "comments", before).Limit(limit).Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	defer r.metrics.TrackQuery("update")()

	if err := r.db.WithContext(ctx).
		Model(comment).
		Select("comment", "is_edited", "updated_at").
		Updates(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	defer r.metrics.TrackQuery("delete")()

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}
