package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sk-federation/youth-portal/internal/api/http/handlers"
	"github.com/sk-federation/youth-portal/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Auth   *handlers.AuthHandler
	Pages  *handlers.PagesHandler
	Gate   *auth.Gate
	Routes auth.RouteTable
}

// RegisterRoutes wires HTTP routes. The gate runs for every request and
// skips excluded paths (the API namespace, assets) itself.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group(cfg.Routes.APIPrefix)
	api.Get("/metrics", cfg.Health.Metrics)

	authGroup := api.Group("/auth")
	authGroup.Post("/sign-in", cfg.Auth.SignIn)
	authGroup.Post("/sign-out", cfg.Auth.SignOut)
	authGroup.Get("/session", cfg.Auth.Session)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)

	pages := app.Group("", cfg.Gate.Handle)
	for _, route := range cfg.Routes.PublicRoutes {
		pages.Get(route, cfg.Pages.Public)
		if route != "/" {
			pages.Get(route+"/*", cfg.Pages.Public)
		}
	}
	for _, route := range cfg.Routes.AuthRoutes {
		pages.Get(route, cfg.Pages.Public)
	}
	for _, role := range cfg.Routes.Roles {
		pages.Get(role.Prefix, cfg.Pages.Protected)
		pages.Get(role.Prefix+"/*", cfg.Pages.Protected)
	}

	// Unknown paths still pass through the gate so an anonymous caller is sent
	// to sign-in rather than told the page does not exist.
	pages.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}
