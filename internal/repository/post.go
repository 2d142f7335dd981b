package repository

import (
	"context"
	"errors"

	"lattice/internal/cursor"
	"lattice/internal/models"
	"lattice/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// ListByAuthor returns up to limit posts by authorID older than before, newest first.
	ListByAuthor(ctx context.Context, authorID uint, before *cursor.Position, limit int) ([]models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
}

// postRepository implements PostRepository
type postRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, metrics: observability.NewDatabaseMetrics("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer r.metrics.TrackQuery("create")()

	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer r.metrics.TrackQuery("get_by_id")()

	var post models.Post
	if err := readDB(r.db).WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, before *cursor.Position, limit int) ([]models.Post, error) {
	defer r.metrics.TrackQuery("list_by_author")()
	ctx, span := observability.TraceRepositoryMethod(ctx, "ListByAuthor", "posts")
	defer span.End()

	var posts []models.Post
	q := readDB(r.db).WithContext(ctx).
		Model(&models.Post{}).
		Where("posts.author_id = ?", authorID)
	if err := keysetBefore(q, "posts", before).Limit(limit).Find(&posts).Error; err != nil {
		span.RecordError(err)
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer r.metrics.TrackQuery("update")()

	if err := r.db.WithContext(ctx).
		Model(post).
		Select("content", "is_edited", "updated_at").
		Updates(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	defer r.metrics.TrackQuery("delete")()

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
