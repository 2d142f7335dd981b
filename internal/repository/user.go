package repository

import (
	"context"
	"errors"

	"lattice/internal/models"
	"lattice/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetForUpdate reads from the primary, for read-modify-write paths.
	GetForUpdate(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// IsPrivate returns the owner's privacy flag, or NotFound when the owner does not exist.
	IsPrivate(ctx context.Context, id uint) (bool, error)
	// Register creates user unless the email or username is already taken.
	Register(ctx context.Context, user *models.User) error
	// Update writes the profile columns of user and reloads the rest of the
	// row, so privacy, status and credentials are never written from a copy.
	Update(ctx context.Context, user *models.User) error
	SetPrivacy(ctx context.Context, id uint, private bool) error
}

type userRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, metrics: observability.NewDatabaseMetrics("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_id")()
	return firstUser(readDB(r.db).WithContext(ctx), id)
}

func (r *userRepository) GetForUpdate(ctx context.Context, id uint) (*models.User, error) {
	defer r.metrics.TrackQuery("get_for_update")()
	return firstUser(r.db.WithContext(ctx), id)
}

func firstUser(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_email")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_username")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) IsPrivate(ctx context.Context, id uint) (bool, error) {
	defer r.metrics.TrackQuery("is_private")()

	var rows []bool
	if err := readDB(r.db).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("is_private", &rows).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	if len(rows) == 0 {
		return false, models.NewNotFoundError("User", id)
	}
	return rows[0], nil
}

func (r *userRepository) Register(ctx context.Context, user *models.User) error {
	defer r.metrics.TrackQuery("register")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).
			Where("email = ? OR username = ?", user.Email, user.Username).
			Count(&taken).Error; err != nil {
			return models.NewInternalError(err)
		}
		if taken > 0 {
			return models.NewConflictError("User already exists")
		}
		if err := tx.Create(user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.NewConflictError("User already exists")
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	return err
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	defer r.metrics.TrackQuery("update")()

	db := r.db.WithContext(ctx)
	result := db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Select("name", "bio", "address", "country", "display_picture_url", "updated_at").
		Updates(&models.User{
			Name:              user.Name,
			Bio:               user.Bio,
			Address:           user.Address,
			Country:           user.Country,
			DisplayPictureURL: user.DisplayPictureURL,
			UpdatedAt:         db.NowFunc(),
		})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	if err := db.First(user, user.ID).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) SetPrivacy(ctx context.Context, id uint, private bool) error {
	defer r.metrics.TrackQuery("set_privacy")()

	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_private", private)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}
