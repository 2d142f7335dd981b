package server

import (
	"lattice/internal/models"
	"lattice/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Content string `json:"content"`
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body postRequest true "Post content"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: currentUserID(c),
		Content:  req.Content,
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:postId
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(post)
}

// GetUserPosts handles GET /api/users/:userId/posts
// @Summary List a user's posts
// @Description Newest first. Private accounts are visible to themselves and accepted followers only.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Param limit query int false "Page size (5-20, default 10)"
// @Param cursor query string false "Cursor from the previous page"
// @Success 200 {object} models.PostPage
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{userId}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	profileID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	limit, err := parseLimit(c)
	if err != nil {
		return nil
	}

	page, err := s.postService.ListUserPosts(c.UserContext(), service.ListUserPostsInput{
		ViewerID:  currentUserID(c),
		ProfileID: profileID,
		Limit:     limit,
		Cursor:    c.Query("cursor"),
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(page)
}

// UpdatePost handles PATCH /api/posts/:postId
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:  currentUserID(c),
		PostID:  postID,
		Content: req.Content,
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:postId
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: currentUserID(c),
		PostID: postID,
	}); err != nil {
		return respondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
