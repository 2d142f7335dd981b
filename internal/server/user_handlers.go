package server

import (
	"lattice/internal/models"
	"lattice/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UpdateProfileRequest carries optional profile fields; omitted fields are unchanged.
type UpdateProfileRequest struct {
	Name              *string `json:"name"`
	Bio               *string `json:"bio"`
	Address           *string `json:"address"`
	Country           *string `json:"country"`
	DisplayPictureURL *string `json:"display_picture_url"`
}

type privacyRequest struct {
	IsPrivate *bool `json:"is_private"`
}

// GetUserProfile handles GET /api/users/:userId
// @Summary Public profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} models.UserSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "userId")
	if err != nil {
		return nil
	}

	profile, err := s.userService.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(profile)
}

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetMe(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PATCH /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:            currentUserID(c),
		Name:              req.Name,
		Bio:               req.Bio,
		Address:           req.Address,
		Country:           req.Country,
		DisplayPictureURL: req.DisplayPictureURL,
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(user)
}

// SetMyPrivacy handles PUT /api/users/me/privacy
// @Summary Set account privacy
// @Description Private accounts are visible to themselves and accepted followers only.
// @Tags users
// @Accept json
// @Security BearerAuth
// @Param request body privacyRequest true "Privacy flag"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me/privacy [put]
func (s *Server) SetMyPrivacy(c *fiber.Ctx) error {
	var req privacyRequest
	if err := c.BodyParser(&req); err != nil || req.IsPrivate == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("is_private is required"))
	}

	if err := s.userService.SetPrivacy(c.UserContext(), currentUserID(c), *req.IsPrivate); err != nil {
		return respondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
