// handlers/score_routes.go
package handlers

import (
	"strconv"
	"time"

	"picturegame-bot/middleware"
	"picturegame-bot/services"

	"github.com/gofiber/fiber/v2"
)

const maxLeaderboardLimit = 100

// SetupScoreRoutes mounts the read-only stats API.
func SetupScoreRoutes(app *fiber.App, ledger services.Ledger, leaderboard *services.LeaderboardService, apiToken string) {
	api := app.Group("/", middleware.APITokenMiddleware(apiToken))

	api.Get("/scores/:username", func(c *fiber.Ctx) error {
		username := c.Params("username")
		tr, err := parseRange(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		points, err := ledger.GetUserScore(c.UserContext(), username, tr)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load score",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"username": username, "points": points})
	})

	api.Get("/leaderboard", func(c *fiber.Ctx) error {
		tr, err := parseRange(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		limit := c.QueryInt("limit", 10)
		if limit <= 0 || limit > maxLeaderboardLimit {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be between 1 and " + strconv.Itoa(maxLeaderboardLimit),
			})
		}

		hs, err := leaderboard.HighScores(c.UserContext(), tr, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(hs)
	})

	api.Get("/leaderboard.html", func(c *fiber.Ctx) error {
		tr, title := services.CurrentMonth(time.Now())
		hs, err := leaderboard.HighScores(c.UserContext(), &tr, 0)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("failed to load leaderboard")
		}
		c.Type("html", "utf-8")
		return c.SendString(leaderboard.RenderHTML(title, hs))
	})
}

// parseRange reads optional from/to epoch-millisecond bounds. No bounds means
// all time.
func parseRange(c *fiber.Ctx) (*services.TimeRange, error) {
	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr == "" && toStr == "" {
		return nil, nil
	}

	tr := &services.TimeRange{}
	if fromStr != "" {
		from, err := strconv.ParseInt(fromStr, 10, 64)
		if err != nil || from < 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "from must be epoch milliseconds")
		}
		tr.From = from
	}
	if toStr != "" {
		to, err := strconv.ParseInt(toStr, 10, 64)
		if err != nil || to < 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "to must be epoch milliseconds")
		}
		tr.To = to
	}
	if tr.To > 0 && tr.From >= tr.To {
		return nil, fiber.NewError(fiber.StatusBadRequest, "from must be before to")
	}
	return tr, nil
}
