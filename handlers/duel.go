// handlers/duel.go
package handlers

import (
	"eduwave-game-service/middleware"
	"eduwave-game-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupDuelRoutes(app *fiber.App, duelService *services.DuelService) {
	// 🔐 All duel routes require user context (userID), enforced via middleware
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/duels", func(c *fiber.Ctx) error {
		var body struct {
			Topic        string `json:"topic"`
			NumQuestions int    `json:"num_questions"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		duel, err := duelService.CreateDuel(middleware.UserID(c), body.Topic, body.NumQuestions)
		if err != nil {
			return services.RespondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(duel)
	})

	secured.Post("/duels/join", func(c *fiber.Ctx) error {
		var body struct {
			DuelKey string `json:"duel_key"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		duel, err := duelService.JoinDuel(middleware.UserID(c), body.DuelKey)
		if err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(duel)
	})

	// Registered before /duels/:duelKey so "stats" never matches as a key.
	secured.Get("/duels/stats", func(c *fiber.Ctx) error {
		stats, err := duelService.GetGameStats(middleware.UserID(c))
		if err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(stats)
	})

	secured.Get("/duels/:duelKey", func(c *fiber.Ctx) error {
		duel, err := duelService.GetDuelStatus(c.Params("duelKey"))
		if err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(duel)
	})

	secured.Post("/duels/:duelKey/start", func(c *fiber.Ctx) error {
		duel, err := duelService.StartDuel(middleware.UserID(c), c.Params("duelKey"))
		if err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(duel)
	})

	secured.Post("/duels/:duelKey/cancel", func(c *fiber.Ctx) error {
		if err := duelService.CancelDuel(middleware.UserID(c), c.Params("duelKey")); err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "duel cancelled"})
	})

	secured.Post("/duels/:duelKey/forfeit", func(c *fiber.Ctx) error {
		if err := duelService.ForfeitDuel(middleware.UserID(c), c.Params("duelKey")); err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "duel forfeited"})
	})

	secured.Post("/duels/results", func(c *fiber.Ctx) error {
		var body struct {
			DuelKey string `json:"duel_key"`
			Score   int64  `json:"score"`
			IsSolo  bool   `json:"is_solo"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		result, err := duelService.SubmitResult(middleware.UserID(c), body.DuelKey, body.Score, body.IsSolo)
		if err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(result)
	})
}
