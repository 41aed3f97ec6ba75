// handlers/leaderboard.go
package handlers

import (
	"strconv"

	"eduwave-game-service/middleware"
	"eduwave-game-service/services"

	"github.com/gofiber/fiber/v2"
)

const defaultLeaderboardLimit = 50
const maxLeaderboardLimit = 100

func SetupLeaderboardRoutes(app *fiber.App, leaderboard *services.LeaderboardService, badges *services.BadgeEngine) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLeaderboardLimit)))
		offset, _ := strconv.Atoi(c.Query("offset", "0"))
		if limit <= 0 || limit > maxLeaderboardLimit {
			limit = defaultLeaderboardLimit
		}
		if offset < 0 {
			offset = 0
		}
		includeBadges := c.Query("include_badges") == "true"

		entries, err := leaderboard.GetLeaderboard(limit, offset, includeBadges)
		if err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(fiber.Map{"entries": entries, "limit": limit, "offset": offset})
	})

	secured.Get("/leaderboard/rank", func(c *fiber.Ctx) error {
		rank, points, total, err := leaderboard.GetUserRank(middleware.UserID(c))
		if err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(fiber.Map{"rank": rank, "points": points, "total_users": total})
	})

	secured.Get("/user/badges", func(c *fiber.Ctx) error {
		view, err := badges.GetUserBadges(middleware.UserID(c))
		if err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(view)
	})

	// On-demand re-validation of every badge predicate, then the fresh list.
	secured.Post("/user/badges/check", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		badges.CheckAll(c.Context(), userID)

		view, err := badges.GetUserBadges(userID)
		if err != nil {
			return services.RespondError(c, err)
		}
		return c.JSON(view)
	})
}
