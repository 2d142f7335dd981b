package repository

import (
	"context"

	"lattice/internal/cursor"
	"lattice/internal/models"
	"lattice/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// FeedRepository reads the home feed: posts by accounts the viewer follows
// with an accepted edge.
type FeedRepository interface {
	// ListForViewer returns up to limit feed posts older than before, ordered
	// by (created_at DESC, id DESC).
	ListForViewer(ctx context.Context, viewerID uint, before *cursor.Position, limit int) ([]models.FeedPost, error)
}

type feedRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *gorm.DB) FeedRepository {
	return &feedRepository{db: db, metrics: observability.NewDatabaseMetrics("posts")}
}

func (r *feedRepository) ListForViewer(ctx context.Context, viewerID uint, before *cursor.Position, limit int) ([]models.FeedPost, error) {
	defer r.metrics.TrackQuery("feed")()
	ctx, span := observability.TraceRepositoryMethod(ctx, "ListForViewer", "posts")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("feed.viewer_id", int64(viewerID)),
		attribute.Int("feed.limit", limit),
		attribute.Bool("feed.has_cursor", before != nil),
	)

	q := readDB(r.db).WithContext(ctx).
		Table("posts").
		Select(`posts.id, posts.author_id, posts.author_username, users.display_picture_url AS author_display_picture_url,
			posts.content, posts.is_edited, posts.created_at`).
		Joins("JOIN follows ON follows.followee_id = posts.author_id AND follows.follower_id = ? AND follows.status = ?",
			viewerID, models.FollowStatusAccepted).
		Joins("JOIN users ON users.id = posts.author_id AND users.deleted_at IS NULL").
		Where("posts.deleted_at IS NULL")

	var rows []models.FeedPost
	if err := keysetBefore(q, "posts", before).Limit(limit).Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
