package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed
// @Summary Home feed
// @Description Posts by accounts the caller follows with an accepted edge, newest first.
// @Description X-Cache reports whether the page was served from cache.
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (5-20, default 10)"
// @Param cursor query string false "Cursor from the previous page"
// @Success 200 {object} models.FeedPage
// @Failure 400 {object} models.ErrorResponse
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	limit, err := parseLimit(c)
	if err != nil {
		return nil
	}

	page, hit, err := s.feedService.GetFeed(c.UserContext(), currentUserID(c), limit, c.Query("cursor"))
	if err != nil {
		return respondWithAppError(c, err)
	}

	if hit {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	return c.JSON(page)
}
