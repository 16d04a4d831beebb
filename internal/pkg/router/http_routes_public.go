package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aicser/aicser-studio/app/controllers"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Account activation link from the signup mail and the logout route are
	// registered before the provider wildcard; fiber matches in registration
	// order and would otherwise treat "activate" and "logout" as providers.
	app.Get("/auth/activate", controllers.HandleAuthActivate)
	app.Get("/auth/logout", controllers.HandleOAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Billing provider webhooks (no auth, signature-verified in controller,
	// outside the rate-limited API group so provider retries never get 429)
	app.Post("/webhooks/stripe", controllers.HandleBillingWebhook)
}
