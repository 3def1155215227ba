package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	controller "mailgate/controllers"
	"mailgate/middleware"
)

func SetupRoutes(app *fiber.App, vc *controller.ValidationController) {
	// Liveness endpoint, outside the rate-limit window
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("", middleware.GeneralRateLimiter(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	api.Post("/precheck", vc.Precheck)
	api.Post("/verify", middleware.VerifyRateLimiter(), vc.Verify)
	api.Post("/send-message", vc.SendMessage)
	api.Get("/metrics", vc.Metrics)

	// 404 fallback
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
