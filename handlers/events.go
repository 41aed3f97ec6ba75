// handlers/events.go
package handlers

import (
	"eduwave-game-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupEventRoutes registers the service-to-service engagement ingest. These
// routes sit behind the gateway token only; sibling services post on behalf
// of users, so no X-User-ID context is required.
func SetupEventRoutes(app *fiber.App, engagement *services.EngagementService) {
	app.Post("/events/:type", func(c *fiber.Ctx) error {
		var event services.EngagementEvent
		if err := c.BodyParser(&event); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		result, err := engagement.Handle(c.Context(), c.Params("type"), event)
		if err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(result)
	})
}
