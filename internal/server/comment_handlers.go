package server

import (
	"lattice/internal/models"
	"lattice/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Comment         string  `json:"comment"`
	ParentCommentID *string `json:"parent_comment_id,omitempty"`
}

// GetComments handles GET /api/posts/:postId/comments
// @Summary List comments
// @Description Top-level comments of a post, newest first
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Param limit query int false "Page size (5-20, default 10)"
// @Param cursor query string false "Cursor from the previous page"
// @Success 200 {object} models.CommentPage
// @Router /posts/{postId}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}
	limit, err := parseLimit(c)
	if err != nil {
		return nil
	}

	page, err := s.commentService.ListComments(c.UserContext(), service.ListCommentsInput{
		ViewerID: currentUserID(c),
		PostID:   postID,
		Limit:    limit,
		Cursor:   c.Query("cursor"),
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(page)
}

// CreateComment handles POST /api/posts/:postId/comments
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Param request body commentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Router /posts/{postId}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:          currentUserID(c),
		PostID:          postID,
		Comment:         req.Comment,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetReplies handles GET /api/comments/:commentId/replies
func (s *Server) GetReplies(c *fiber.Ctx) error {
	commentID, err := parseUUID(c, "commentId")
	if err != nil {
		return nil
	}
	limit, err := parseLimit(c)
	if err != nil {
		return nil
	}

	page, err := s.commentService.ListReplies(c.UserContext(), service.ListRepliesInput{
		ViewerID:  currentUserID(c),
		CommentID: commentID,
		Limit:     limit,
		Cursor:    c.Query("cursor"),
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(page)
}

// UpdateComment handles PATCH /api/comments/:commentId
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := parseUUID(c, "commentId")
	if err != nil {
		return nil
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    currentUserID(c),
		CommentID: commentID,
		Comment:   req.Comment,
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := parseUUID(c, "commentId")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    currentUserID(c),
		CommentID: commentID,
	}); err != nil {
		return respondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
