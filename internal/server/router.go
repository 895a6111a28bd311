package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Anvoria/scanly/internal/domain/login"
)

// SetupRoutes sets up the routes for the application
func SetupRoutes(app *fiber.App, h *login.Handler, svc *login.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	grp := app.Group("/login")
	grp.Post("/generate", h.Generate)
	grp.Post("/status", h.Status)
	grp.Post("/scan", h.Scan)
	grp.Post("/confirm", h.Confirm)
	grp.Post("/verify", h.Verify)
	grp.Post("/password", h.PasswordLogin)

	authed := grp.Group("", login.AuthMiddleware(svc))
	authed.Get("/devices", h.Devices)
	authed.Post("/logout-all", h.LogoutAll)
}
