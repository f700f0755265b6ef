package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/requisition-service/internal/api/http/handlers"
	"github.com/spec-kit/requisition-service/internal/auth"
	"github.com/spec-kit/requisition-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Requisitions   *handlers.RequisitionsHandler
	Replacement    *handlers.ReplacementHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	LoginLimiter   fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	if cfg.LoginLimiter != nil {
		authGroup.Post("/login", cfg.LoginLimiter, cfg.Auth.Login)
	} else {
		authGroup.Post("/login", cfg.Auth.Login)
	}
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	// The confirmation token is its own credential; no session required.
	api.Get("/leave/confirm/:token", cfg.Replacement.Show)
	api.Post("/leave/confirm/:token", cfg.Replacement.Resolve)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	requisitions := protected.Group("/requisitions")
	requisitions.Post("", cfg.Requisitions.Create)
	requisitions.Get("", cfg.Requisitions.List)
	requisitions.Get("/:id", cfg.Requisitions.Get)
	requisitions.Put("/:id", cfg.Requisitions.Update)
	requisitions.Delete("/:id", cfg.Requisitions.Delete)
	requisitions.Get("/:id/export", cfg.Requisitions.Export)

	users := protected.Group("/users")
	users.Get("/search", cfg.Users.Search)
	users.Get("/me", cfg.Users.Me)
	users.Put("/me", cfg.Users.UpdateMe)
	users.Get("/me/pending-replacement-requests", cfg.Users.PendingReplacements)

	admin := users.Group("", auth.RequireUserManagement())
	admin.Get("", cfg.Users.List)
	admin.Post("", cfg.Users.Create)
	admin.Get("/:id", cfg.Users.Get)
	admin.Put("/:id", cfg.Users.Update)
	admin.Delete("/:id", cfg.Users.Delete)

	protected.Get("/dashboard/summary", cfg.Dashboard.Summary)
}
