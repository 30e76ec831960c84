package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-portal/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-portal/internal/auth"
	"github.com/spec-kit/maintenance-portal/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Actions        *handlers.ActionsHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
	// PhotoDir is served under PhotoURLPrefix when both are set.
	PhotoDir       string
	PhotoURLPrefix string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)
	app.Get("/users", cfg.Auth.ListUsers)

	if cfg.PhotoDir != "" && cfg.PhotoURLPrefix != "" {
		app.Static(cfg.PhotoURLPrefix, cfg.PhotoDir, fiber.Static{Browse: false})
	}

	admin := auth.RequireRole(domain.RoleAdmin)
	outlet := auth.RequireRole(domain.RoleOutlet)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/overdue", admin, cfg.Tickets.ListOverdue)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/", outlet, cfg.Tickets.CreateTicket)
	tickets.Post("/:id/plan", admin, cfg.Tickets.SubmitPlan)
	tickets.Post("/:id/finish", admin, cfg.Tickets.FinishTicket)

	app.Post("/actions", cfg.AuthMiddleware.Handle, cfg.Actions.Dispatch)
	app.Get("/metrics", cfg.AuthMiddleware.Handle, admin, cfg.Metrics.Snapshot)
}
