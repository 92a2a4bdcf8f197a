package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/yourorg/kharkivmetro/internal/debug"
	"github.com/yourorg/kharkivmetro/internal/handlers"
	"github.com/yourorg/kharkivmetro/internal/middleware"
)

// Handlers groups everything Register mounts.
type Handlers struct {
	Metro  *handlers.MetroHandler
	Health *handlers.HealthHandler
	Status *handlers.StatusHandler
	Admin  *handlers.AdminHandler

	// JWTSecret verifies admin tokens.
	JWTSecret []byte
	// RateLimit is the per-IP request budget per minute for queries.
	RateLimit int
	// Dashboard mounts the debug websocket.
	Dashboard bool
}

func Register(app *fiber.App, h Handlers) {
	app.Use(middleware.DashboardLogger())

	// ============================================================================
	// PUBLIC API
	// ============================================================================
	api := app.Group("/api")

	// Health check (no rate limiting)
	api.Get("/health", h.Health.Health)
	api.Get("/status", h.Status.GetStatus)

	limit := middleware.APIRateLimiter(h.RateLimit)
	api.Get("/lines", limit, h.Metro.Lines)
	api.Get("/stations", limit, h.Metro.Stations)
	api.Get("/stations/resolve", limit, h.Metro.Resolve)
	api.Get("/schedule/:station", limit, h.Metro.Schedule)
	api.Get("/route", limit, h.Metro.Route)

	// ============================================================================
	// ADMIN
	// ============================================================================
	admin := api.Group("/admin")
	admin.Post("/login", middleware.AuthRateLimiter(), h.Admin.Login)
	admin.Post("/reload", middleware.RequireAdmin(h.JWTSecret), h.Admin.Reload)
	admin.Post("/refresh", middleware.RequireAdmin(h.JWTSecret), middleware.ScrapeRateLimiter(), h.Admin.Refresh)

	// ============================================================================
	// DEBUG DASHBOARD
	// ============================================================================
	if !h.Dashboard {
		return
	}
	app.Use("/ws/debug", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/debug", websocket.New(func(c *websocket.Conn) {
		debug.HandleWebSocketFiber(c)
	}))
}
