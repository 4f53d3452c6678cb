package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/sk-federation/youth-portal/internal/api/dto"
	"github.com/sk-federation/youth-portal/internal/auth"
)

// PagesHandler answers page routes. Rendering is left to the front end; a
// page is returned as its path plus the resolved session user.
type PagesHandler struct {
	sessions *auth.SessionResolver
	routes   auth.RouteTable
	cookie   auth.SessionCookie
}

// NewPagesHandler constructs handler.
func NewPagesHandler(sessions *auth.SessionResolver, routes auth.RouteTable, cookie auth.SessionCookie) *PagesHandler {
	return &PagesHandler{sessions: sessions, routes: routes, cookie: cookie}
}

// Public serves pages that render with or without a session.
func (h *PagesHandler) Public(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"page": c.Path(),
		"user": dto.FromSession(h.sessions.ResolveRequest(c)),
	})
}

// Protected serves role pages. It rechecks the stored account: one deleted,
// deactivated or moved to another role since sign-in ends up at sign-in, and
// a role outside its prefix is sent to its own dashboard.
func (h *PagesHandler) Protected(c *fiber.Ctx) error {
	session := h.sessions.ResolveRequest(c)
	if session == nil {
		h.cookie.Clear(c)
		target := c.OriginalURL()
		return c.Redirect(h.routes.SignInPath+"?"+url.Values{"redirect": {target}}.Encode(), fiber.StatusFound)
	}

	cfg, ok := h.routes.Lookup(session.Role)
	if !ok {
		h.cookie.Clear(c)
		return c.Redirect(h.routes.SignInPath, fiber.StatusFound)
	}
	if !h.routes.Allows(session.Role, c.Path()) {
		return c.Redirect(cfg.Dashboard, fiber.StatusFound)
	}

	return c.JSON(fiber.Map{
		"page":      c.Path(),
		"user":      dto.FromSession(session),
		"dashboard": cfg.Dashboard,
	})
}
