package repository

import (
	"context"
	"errors"

	"lattice/internal/models"
	"lattice/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines persistence for the directed follow graph.
type FollowRepository interface {
	// InsertIfAbsent stores edge unless (follower, followee) already exists.
	// created reports whether a row was written.
	InsertIfAbsent(ctx context.Context, edge *models.Follow) (created bool, err error)
	Get(ctx context.Context, followerID, followeeID uint) (*models.Follow, error)
	// Accept moves a pending edge to accepted. It returns false when no pending edge matched.
	Accept(ctx context.Context, followerID, followeeID uint) (bool, error)
	// Delete removes the edge in any status and reports whether one existed.
	Delete(ctx context.Context, followerID, followeeID uint) (bool, error)
	// DeletePending removes a pending edge only.
	DeletePending(ctx context.Context, followerID, followeeID uint) (bool, error)
	IsAccepted(ctx context.Context, followerID, followeeID uint) (bool, error)
	Following(ctx context.Context, followerID uint) ([]models.Follow, error)
	Followers(ctx context.Context, followeeID uint) ([]models.Follow, error)
	PendingRequests(ctx context.Context, followeeID uint) ([]models.Follow, error)
}

type followRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, metrics: observability.NewDatabaseMetrics("follows")}
}

func (r *followRepository) InsertIfAbsent(ctx context.Context, edge *models.Follow) (bool, error) {
	defer r.metrics.TrackQuery("insert")()

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(edge)
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Get(ctx context.Context, followerID, followeeID uint) (*models.Follow, error) {
	defer r.metrics.TrackQuery("get")()

	var edge models.Follow
	if err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		First(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &edge, nil
}

func (r *followRepository) Accept(ctx context.Context, followerID, followeeID uint) (bool, error) {
	defer r.metrics.TrackQuery("accept")()

	result := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ? AND status = ?", followerID, followeeID, models.FollowStatusPending).
		Update("status", models.FollowStatusAccepted)
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followeeID uint) (bool, error) {
	defer r.metrics.TrackQuery("delete")()

	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) DeletePending(ctx context.Context, followerID, followeeID uint) (bool, error) {
	defer r.metrics.TrackQuery("delete_pending")()

	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ? AND status = ?", followerID, followeeID, models.FollowStatusPending).
		Delete(&models.Follow{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) IsAccepted(ctx context.Context, followerID, followeeID uint) (bool, error) {
	defer r.metrics.TrackQuery("is_accepted")()

	var count int64
	if err := readDB(r.db).WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ? AND status = ?", followerID, followeeID, models.FollowStatusAccepted).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) Following(ctx context.Context, followerID uint) ([]models.Follow, error) {
	defer r.metrics.TrackQuery("following")()

	var edges []models.Follow
	if err := readDB(r.db).WithContext(ctx).
		Where("follower_id = ? AND status = ?", followerID, models.FollowStatusAccepted).
		Preload("Followee").
		Order("created_at DESC").
		Find(&edges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return edges, nil
}

func (r *followRepository) Followers(ctx context.Context, followeeID uint) ([]models.Follow, error) {
	defer r.metrics.TrackQuery("followers")()

	var edges []models.Follow
	if err := readDB(r.db).WithContext(ctx).
		Where("followee_id = ? AND status = ?", followeeID, models.FollowStatusAccepted).
		Preload("Follower").
		Order("created_at DESC").
		Find(&edges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return edges, nil
}

func (r *followRepository) PendingRequests(ctx context.Context, followeeID uint) ([]models.Follow, error) {
	defer r.metrics.TrackQuery("pending")()

	var edges []models.Follow
	if err := r.db.WithContext(ctx).
		Where("followee_id = ? AND status = ?", followeeID, models.FollowStatusPending).
		Preload("Follower").
		Order("created_at DESC").
		Find(&edges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return edges, nil
}
