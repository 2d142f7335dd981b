package server

import (
	"github.com/gofiber/fiber/v2"
)

// Follow handles POST /api/follows/:followeeId
// @Summary Follow a user
// @Description Public accounts are followed immediately; private accounts get a pending request.
// @Description Following again is a no-op that reports the existing status with created=false.
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param followeeId path int true "User to follow"
// @Success 201 {object} models.FollowResult
// @Success 200 {object} models.FollowResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /follows/{followeeId} [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	followeeID, err := parseID(c, "followeeId")
	if err != nil {
		return nil
	}

	result, err := s.followService.Follow(c.UserContext(), currentUserID(c), followeeID)
	if err != nil {
		return respondWithAppError(c, err)
	}

	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}

// Unfollow handles DELETE /api/follows/:followeeId
// It also withdraws a pending request.
func (s *Server) Unfollow(c *fiber.Ctx) error {
	followeeID, err := parseID(c, "followeeId")
	if err != nil {
		return nil
	}

	if err := s.followService.Unfollow(c.UserContext(), currentUserID(c), followeeID); err != nil {
		return respondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AcceptFollowRequest handles POST /api/follows/requests/:followerId/accept
// @Summary Accept a follow request
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param followerId path int true "Requesting user"
// @Success 200 {object} models.Follow
// @Failure 404 {object} models.ErrorResponse
// @Router /follows/requests/{followerId}/accept [post]
func (s *Server) AcceptFollowRequest(c *fiber.Ctx) error {
	followerID, err := parseID(c, "followerId")
	if err != nil {
		return nil
	}

	edge, err := s.followService.AcceptFollow(c.UserContext(), currentUserID(c), followerID)
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(edge)
}

// RejectFollowRequest handles POST /api/follows/requests/:followerId/reject
func (s *Server) RejectFollowRequest(c *fiber.Ctx) error {
	followerID, err := parseID(c, "followerId")
	if err != nil {
		return nil
	}

	if err := s.followService.RejectFollow(c.UserContext(), currentUserID(c), followerID); err != nil {
		return respondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveFollower handles DELETE /api/follows/followers/:followerId
func (s *Server) RemoveFollower(c *fiber.Ctx) error {
	followerID, err := parseID(c, "followerId")
	if err != nil {
		return nil
	}

	if err := s.followService.RemoveFollower(c.UserContext(), currentUserID(c), followerID); err != nil {
		return respondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetFollowing handles GET /api/follows/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	edges, err := s.followService.Following(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(edges)
}

// GetFollowers handles GET /api/follows/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	edges, err := s.followService.Followers(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(edges)
}

// GetFollowRequests handles GET /api/follows/requests
func (s *Server) GetFollowRequests(c *fiber.Ctx) error {
	edges, err := s.followService.PendingRequests(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(edges)
}

// GetFollowStatus handles GET /api/follows/status/:userId
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	targetID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}

	status, err := s.followService.Status(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(status)
}
