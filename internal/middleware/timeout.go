package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestTimeout bounds the request context handed to services, so database
// and cache calls give up after d. Paths under any of the skip prefixes
// (long-lived websocket upgrades) are left unbounded. A non-positive d disables it.
func RequestTimeout(d time.Duration, skip ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d <= 0 {
			return c.Next()
		}
		for _, prefix := range skip {
			if strings.HasPrefix(c.Path(), prefix) {
				return c.Next()
			}
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
