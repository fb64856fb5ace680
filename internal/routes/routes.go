// Package routes defines the API routing configuration.
// It maps every HTTP route to its handler and the authentication it needs:
// none, a merchant API key, a dashboard session, or an admin session.
package routes

import (
	"lumepay/internal/handlers"
	"lumepay/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Intent   *handlers.IntentHandler
	Settings *handlers.SettingsHandler
	APIKey   *handlers.APIKeyHandler
	Webhook  *handlers.WebhookHandler
	Waitlist *handlers.WaitlistHandler
	Health   *handlers.HealthHandler
}

type Middleware struct {
	Session     *middleware.AuthMiddleware
	APIKey      *middleware.APIKeyMiddleware
	Idempotency fiber.Handler
	// AuthLimiter throttles login and registration when set.
	AuthLimiter fiber.Handler
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, h Handlers, m Middleware) {
	app.Get("/health", h.Health.Check)

	api := app.Group("/api")
	session := m.Session.Handler

	setupAuthRoutes(api, h, m, session)

	api.Get("/waitlist/status", h.Waitlist.Status)
	api.Post("/waitlist/join", h.Waitlist.Join)

	// Server-to-server, authorized by API key.
	intents := api.Group("/payment/intent")
	intents.Post("/create", m.APIKey.Require, m.Idempotency, h.Intent.CreateIntent)
	intents.Get("/:id", m.APIKey.Optional, h.Intent.GetIntent)
	intents.Post("/:id/pay", m.APIKey.Require, m.Idempotency, h.Intent.SubmitPayment)

	// Dashboard, authorized by session.
	api.Get("/payments/intents", session, h.Intent.ListIntents)
	api.Get("/dashboard/stats", session, h.Intent.Stats)

	settings := api.Group("/settings", session)
	settings.Post("/name", h.Settings.UpdateName)
	settings.Post("/bank", h.Settings.UpdateBank)

	keys := api.Group("/keys", session)
	keys.Post("/", h.APIKey.Create)
	keys.Get("/", h.APIKey.List)
	keys.Get("/:id", h.APIKey.Get)
	keys.Patch("/:id", h.APIKey.Update)
	keys.Delete("/:id", h.APIKey.Delete)

	webhooks := api.Group("/webhooks", session)
	webhooks.Get("/config", h.Webhook.GetConfig)
	webhooks.Post("/config", h.Webhook.UpdateConfig)
	webhooks.Post("/test", h.Webhook.SendTest)
	webhooks.Get("/deliveries", h.Webhook.ListDeliveries)
	webhooks.Post("/deliveries/:id/retry", h.Webhook.RetryDelivery)

	admin := api.Group("/admin", session, middleware.AdminOnly)
	admin.Get("/waitlist/config", h.Waitlist.GetConfig)
	admin.Post("/waitlist/config", h.Waitlist.UpdateConfig)
	admin.Get("/waitlist", h.Waitlist.List)
	admin.Get("/settings", h.Waitlist.ListSettings)
}

func setupAuthRoutes(api fiber.Router, h Handlers, m Middleware, session fiber.Handler) {
	auth := api.Group("/auth")
	if m.AuthLimiter != nil {
		auth.Post("/register", m.AuthLimiter, h.Auth.Register)
		auth.Post("/login", m.AuthLimiter, h.Auth.Login)
	} else {
		auth.Post("/register", h.Auth.Register)
		auth.Post("/login", h.Auth.Login)
	}
	auth.Post("/logout", session, h.Auth.Logout)
	auth.Get("/me", session, h.Auth.Me)
}
