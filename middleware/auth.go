// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the user identity set by the Gateway.
// Service-to-service routes under /internal/ carry no end-user context, so
// the X-User-ID requirement applies to user-facing routes only.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")

		path := c.Path()
		isInternal := strings.HasPrefix(path, "/internal/") || strings.HasPrefix(path, "/events/")
		if !isInternal && userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing on secured route: %s", path)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		// Attach to ctx for handlers
		c.Locals("user_id", userID)
		c.Locals("user_name", c.Get("X-User-Name"))

		return c.Next()
	}
}

// UserID reads the gateway-provided user id out of the request context.
func UserID(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return id
	}
	return ""
}

// UserName reads the gateway-provided display name, falling back to empty.
func UserName(c *fiber.Ctx) string {
	if name, ok := c.Locals("user_name").(string); ok {
		return name
	}
	return ""
}
