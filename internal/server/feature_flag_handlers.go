package server

import (
	"lattice/internal/featureflags"

	"github.com/gofiber/fiber/v2"
)

// featureFlagsResponse lists the configured rules and what they resolve to for
// the caller. Cache flags are always reported since they default to on.
type featureFlagsResponse struct {
	Raw       map[string]string `json:"raw"`
	Evaluated map[string]bool   `json:"evaluated"`
}

// GetFeatureFlags godoc
// @Summary Evaluated feature flags for the caller
// @Tags system
// @Produce json
// @Security BearerAuth
// @Success 200 {object} featureFlagsResponse
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := currentUserID(c)
	evaluated := s.featureFlags.Snapshot(userID)
	evaluated[featureflags.FeedCache] = s.featureFlags.EnabledOr(featureflags.FeedCache, userID, true)
	evaluated[featureflags.PrivacyCache] = s.featureFlags.EnabledOr(featureflags.PrivacyCache, userID, true)

	return c.JSON(featureFlagsResponse{
		Raw:       s.featureFlags.Raw(),
		Evaluated: evaluated,
	})
}
