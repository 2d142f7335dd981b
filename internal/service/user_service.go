package service

import (
	"context"
	"strings"

	"lattice/internal/cache"
	"lattice/internal/models"
	"lattice/internal/repository"
	"lattice/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
	store    cache.Store
}

// UpdateProfileInput carries optional profile changes; nil fields are left as-is.
type UpdateProfileInput struct {
	UserID            uint
	Name              *string
	Bio               *string
	Address           *string
	Country           *string
	DisplayPictureURL *string
}

// NewUserService returns a new UserService. store may be nil.
func NewUserService(userRepo repository.UserRepository, store cache.Store) *UserService {
	return &UserService{userRepo: userRepo, store: store}
}

// GetProfile returns the public summary of a user.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.UserSummary, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

// GetMe returns the full record of the calling user.
func (s *UserService) GetMe(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// UpdateProfile applies the non-nil fields of in. Only profile columns are
// written; privacy changes go through SetPrivacy.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetForUpdate(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if name != "" {
			user.Name = name
		}
	}
	if in.Bio != nil {
		if err := validation.ValidateBio(*in.Bio); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Bio = *in.Bio
	}
	if in.Country != nil {
		country := strings.TrimSpace(*in.Country)
		if err := validation.ValidateCountry(country); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Country = country
	}
	if in.Address != nil {
		user.Address = strings.TrimSpace(*in.Address)
	}
	if in.DisplayPictureURL != nil {
		user.DisplayPictureURL = strings.TrimSpace(*in.DisplayPictureURL)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetPrivacy flips the account's privacy and drops the cached flag so the
// change is visible to the next CanView.
func (s *UserService) SetPrivacy(ctx context.Context, userID uint, private bool) error {
	if err := s.userRepo.SetPrivacy(ctx, userID, private); err != nil {
		return err
	}
	cache.Invalidate(ctx, s.store, cache.PrivacyKey(userID))
	return nil
}
