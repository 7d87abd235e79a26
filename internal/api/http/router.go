package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sac-service/internal/api/http/handlers"
	"github.com/spec-kit/sac-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Auth           *handlers.AuthHandler
	Cases          *handlers.CasesHandler
	Views          *handlers.ViewsHandler
	Agents         *handlers.AgentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Get)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	// authenticated routes
	authn := cfg.AuthMiddleware.Handle
	authGroup.Post("/password/change", authn, cfg.Auth.ChangePassword)
	app.Get("/me", authn, cfg.Auth.Me)

	app.Get("/cases", authn, auth.RequireCapability(auth.ActionCasesView), cfg.Cases.List)
	app.Post("/cases", authn, auth.RequireCapability(auth.ActionCasesCreate), cfg.Cases.Create)
	app.Get("/cases/:id", authn, auth.RequireCapability(auth.ActionCasesView), cfg.Cases.Get)
	app.Patch("/cases/:id/status", authn, auth.RequireCapability(auth.ActionCasesUpdateStatus), cfg.Cases.PatchStatus)

	app.Get("/alerts", authn, auth.RequireCapability(auth.ActionAlertsView), cfg.Views.Alerts)
	app.Get("/dashboard/supervisor", authn, auth.RequireCapability(auth.ActionDashboardSupervisor), cfg.Views.Supervisor)
	app.Get("/dashboard/manager", authn, auth.RequireCapability(auth.ActionDashboardManager), cfg.Views.Manager)
	app.Get("/dashboard/snapshot", authn, auth.RequireCapability(auth.ActionDashboardSupervisor), cfg.Views.Snapshot)
	app.Get("/categories", authn, auth.RequireCapability(auth.ActionCategoriesView), cfg.Views.Categories)

	agents := app.Group("/agents")
	agents.Get("", authn, auth.RequireCapability(auth.ActionAgentsView), cfg.Agents.List)
	agents.Get("/:id", authn, auth.RequireCapability(auth.ActionAgentsView), cfg.Agents.Get)
	agents.Post("", authn, auth.RequireCapability(auth.ActionAgentsManage), cfg.Agents.Create)
	agents.Put("/:id", authn, auth.RequireCapability(auth.ActionAgentsManage), cfg.Agents.Update)
	agents.Delete("/:id", authn, auth.RequireCapability(auth.ActionAgentsManage), cfg.Agents.Delete)
}
