package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"lattice/internal/models"
	"lattice/internal/repository"
	"lattice/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID uint, username string) (string, time.Time, error)
}

// AuthService registers accounts and exchanges credentials for tokens.
type AuthService struct {
	userRepo   repository.UserRepository
	tokens     TokenIssuer
	bcryptCost int
}

type RegisterInput struct {
	Username          string
	Name              string
	Email             string
	Password          string
	Address           string
	Country           string
	Bio               string
	DisplayPictureURL string
}

// LoginResult carries the issued token and the caller's profile.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func NewAuthService(userRepo repository.UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// WithBcryptCost overrides the hashing cost; used by seeding and tests.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

// Register validates the profile, hashes the password and stores the user.
// A taken email or username is a Conflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Country = strings.TrimSpace(in.Country)

	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	for _, check := range []error{
		validation.ValidateUsername(in.Username),
		validation.ValidateEmail(in.Email),
		validation.ValidatePassword(in.Password),
		validation.ValidateName(in.Name),
		validation.ValidateCountry(in.Country),
		validation.ValidateBio(in.Bio),
	} {
		if check != nil {
			return nil, models.NewValidationError(check.Error())
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	name := in.Name
	if name == "" {
		name = in.Username
	}
	user := &models.User{
		Username:          in.Username,
		Name:              name,
		Email:             in.Email,
		PasswordHash:      string(hash),
		Address:           in.Address,
		Country:           in.Country,
		Bio:               in.Bio,
		DisplayPictureURL: in.DisplayPictureURL,
		AccountStatus:     models.AccountStatusActive,
	}
	if err := s.userRepo.Register(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials and issues a token. Unknown emails and wrong
// passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, models.NewUnauthenticatedError("Invalid credentials")
		}
		return nil, models.NewInternalError(err)
	}
	switch user.AccountStatus {
	case models.AccountStatusSuspended, models.AccountStatusDeactivated:
		return nil, models.NewUnauthorizedError("Account is not active")
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
