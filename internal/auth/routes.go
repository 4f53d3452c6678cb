package auth

import (
	"path"
	"strings"

	"github.com/sk-federation/youth-portal/internal/domain"
)

// RouteConfig is the site subtree a role may visit and its landing page.
type RouteConfig struct {
	Prefix    string
	Dashboard string
}

// RouteTable is the static routing configuration consulted by the gate.
type RouteTable struct {
	Roles         map[domain.Role]RouteConfig
	PublicRoutes  []string
	AuthRoutes    []string
	SignInPath    string
	APIPrefix     string
	ExcludedPaths []string
	ExcludedExts  []string
}

// DefaultRouteTable returns the portal's routing configuration.
func DefaultRouteTable() RouteTable {
	return RouteTable{
		Roles: map[domain.Role]RouteConfig{
			domain.RoleAdmin:        {Prefix: "/admin", Dashboard: "/admin/dashboard"},
			domain.RoleSKFederation: {Prefix: "/sk-federation", Dashboard: "/sk-federation/dashboard"},
			domain.RoleSKOfficial:   {Prefix: "/sk-official", Dashboard: "/sk-official/dashboard"},
		},
		PublicRoutes:  []string{"/", "/about", "/contact", "/announcements"},
		AuthRoutes:    []string{"/sign-in", "/forgot-password"},
		SignInPath:    "/sign-in",
		APIPrefix:     "/api",
		ExcludedPaths: []string{"/static/", "/assets/", "/favicon.ico"},
		ExcludedExts: []string{
			".css", ".js", ".map", ".png", ".jpg", ".jpeg", ".gif", ".svg",
			".ico", ".webp", ".woff", ".woff2", ".ttf", ".txt",
		},
	}
}

// Lookup returns the route config for a role; ok is false for unmapped roles.
func (t RouteTable) Lookup(role domain.Role) (RouteConfig, bool) {
	cfg, ok := t.Roles[role]
	return cfg, ok
}

// Classify places every path in exactly one RouteKind.
func (t RouteTable) Classify(p string) domain.RouteKind {
	for _, route := range t.AuthRoutes {
		if p == route {
			return domain.RouteAuthOnly
		}
	}
	if t.IsPublic(p) {
		return domain.RoutePublic
	}
	return domain.RouteProtected
}

// IsPublic matches p against the allowlist by exact match or path prefix.
func (t RouteTable) IsPublic(p string) bool {
	for _, route := range t.PublicRoutes {
		if matchRoute(p, route) {
			return true
		}
	}
	return false
}

// Excluded reports whether the gate should not run for p at all. Paths that
// belong to a page route are never excluded, whatever their extension.
func (t RouteTable) Excluded(p string) bool {
	if t.servesPage(strings.ToLower(p)) {
		return false
	}
	if t.APIPrefix != "" && matchRoute(p, t.APIPrefix) {
		return true
	}
	for _, prefix := range t.ExcludedPaths {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	for _, e := range t.ExcludedExts {
		if ext == e {
			return true
		}
	}
	return false
}

// Allows reports whether role may visit p.
func (t RouteTable) Allows(role domain.Role, p string) bool {
	cfg, ok := t.Lookup(role)
	if !ok {
		return false
	}
	return strings.HasPrefix(p, cfg.Prefix)
}

// servesPage reports whether p (lowercased) falls under a role prefix or a
// public or auth-only route. The router matches paths case-insensitively.
func (t RouteTable) servesPage(p string) bool {
	for _, cfg := range t.Roles {
		if strings.HasPrefix(p, strings.ToLower(cfg.Prefix)) {
			return true
		}
	}
	for _, route := range t.AuthRoutes {
		if matchRoute(p, strings.ToLower(route)) {
			return true
		}
	}
	for _, route := range t.PublicRoutes {
		if route != "/" && matchRoute(p, strings.ToLower(route)) {
			return true
		}
	}
	return false
}

func matchRoute(p, route string) bool {
	if p == route {
		return true
	}
	return strings.HasPrefix(p, route+"/")
}
