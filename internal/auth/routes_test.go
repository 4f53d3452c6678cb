package auth

import (
	"testing"

	"github.com/sk-federation/youth-portal/internal/domain"
)

func TestClassify(t *testing.T) {
	routes := DefaultRouteTable()

	cases := map[string]domain.RouteKind{
		"/":                      domain.RoutePublic,
		"/about":                 domain.RoutePublic,
		"/about/team":            domain.RoutePublic,
		"/aboutx":                domain.RouteProtected,
		"/announcements/2026/06": domain.RoutePublic,
		"/sign-in":               domain.RouteAuthOnly,
		"/forgot-password":       domain.RouteAuthOnly,
		"/sign-in/extra":         domain.RouteProtected,
		"/sk-official/dashboard": domain.RouteProtected,
		"/admin":                 domain.RouteProtected,
		"/nowhere/at/all":        domain.RouteProtected,
		"":                       domain.RouteProtected,
	}

	for path, want := range cases {
		if got := routes.Classify(path); got != want {
			t.Errorf("Classify(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestExcluded(t *testing.T) {
	routes := DefaultRouteTable()

	excluded := []string{"/api", "/api/auth/session", "/static/chunk.js", "/assets/logo", "/favicon.ico", "/images/logo.PNG", "/robots.txt"}
	for _, p := range excluded {
		if !routes.Excluded(p) {
			t.Errorf("expected %q to bypass the gate", p)
		}
	}

	included := []string{
		"/", "/apix", "/sk-official/budget-reports", "/sign-in", "/admin/users/1.5",
		"/admin/dashboard.txt", "/ADMIN/reports.json.js", "/sk-federation/app.js",
		"/admin.css", "/about/logo.png", "/Announcements/feed.txt",
	}
	for _, p := range included {
		if routes.Excluded(p) {
			t.Errorf("expected %q to go through the gate", p)
		}
	}
}

func TestRoleTableCoversEveryRole(t *testing.T) {
	routes := DefaultRouteTable()
	for _, role := range domain.Roles {
		cfg, ok := routes.Lookup(role)
		if !ok {
			t.Fatalf("role %s has no route config", role)
		}
		if !routes.Allows(role, cfg.Dashboard) {
			t.Fatalf("role %s may not visit its own dashboard %s", role, cfg.Dashboard)
		}
	}
	if routes.Allows("DELETED_ROLE", "/admin") {
		t.Fatal("unmapped role must not be allowed anywhere")
	}
}
