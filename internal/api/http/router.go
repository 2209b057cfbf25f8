package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Staff          *handlers.StaffHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        http.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	app.Post("/tickets", cfg.Tickets.CreateTicket)
	app.Put("/tickets/:trackid/:email", cfg.Tickets.UpdateByTrackAndEmail)
	app.Post("/view-ticket", cfg.Tickets.ViewTicket)
	app.Get("/categories", cfg.Tickets.ListCategories)

	app.Post("/admin/login", cfg.Staff.Login)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle)
	admin.Get("/tickets", cfg.StaffTickets.ListTickets)
	admin.Get("/tickets/:id", cfg.StaffTickets.GetTicket)
	admin.Put("/tickets/:id", cfg.StaffTickets.UpdateTicket)
	admin.Delete("/tickets/:id", cfg.StaffTickets.DeleteTicket)
	admin.Get("/export-tickets", cfg.StaffTickets.ExportTickets)
	admin.Get("/request-tickets", cfg.StaffTickets.CategoryListing(domain.CategoryRequest))
	admin.Get("/incident-tickets", cfg.StaffTickets.CategoryListing(domain.CategoryIncident))
	admin.Get("/categories", cfg.Staff.ListCategories)
	admin.Get("/categories/:name/tickets", cfg.StaffTickets.ListByCategoryName)

	adminOnly := admin.Group("", auth.RequireAdmin())
	adminOnly.Get("/users", cfg.Staff.ListStaff)
	adminOnly.Post("/users", cfg.Staff.CreateStaff)
	adminOnly.Put("/users/:id", cfg.Staff.UpdateStaff)
	adminOnly.Delete("/users/:id", cfg.Staff.DeleteStaff)
	adminOnly.Get("/allowed-emails", cfg.Staff.ListAllowedEmails)
	adminOnly.Post("/allowed-emails", cfg.Staff.AddAllowedEmail)
	adminOnly.Put("/allowed-emails/:id", cfg.Staff.SetAllowedEmailLock)
}
