package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rileyafox/patient-portal/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Users  *handlers.UsersHandler
	Shifts *handlers.ShiftsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/users", cfg.Users.Register)
	app.Post("/shifts", cfg.Shifts.Book)
	app.Get("/shifts", cfg.Shifts.List)
}
