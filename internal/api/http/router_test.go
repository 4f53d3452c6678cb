package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apihttp "github.com/sk-federation/youth-portal/internal/api/http"
	"github.com/sk-federation/youth-portal/internal/api/http/handlers"
	"github.com/sk-federation/youth-portal/internal/auth"
	"github.com/sk-federation/youth-portal/internal/config"
	"github.com/sk-federation/youth-portal/internal/domain"
	"github.com/sk-federation/youth-portal/internal/observability"
	"github.com/sk-federation/youth-portal/internal/repository"
	"github.com/sk-federation/youth-portal/internal/service"
)

type memoryUsers struct {
	users map[string]*domain.User
	err   error
}

func (m *memoryUsers) Create(ctx context.Context, user *domain.User) error {
	user.ID = uuid.NewString()
	m.users[user.ID] = user
	return nil
}

func (m *memoryUsers) TouchLastLogin(ctx context.Context, id string) error { return nil }

func (m *memoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryUsers) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, user := range m.users {
		if user.Username == identifier || strings.EqualFold(user.Email, identifier) {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memoryResets struct{}

func (memoryResets) Create(ctx context.Context, token *repository.PasswordResetToken) error {
	token.ID = uuid.NewString()
	return nil
}

func (memoryResets) GetByToken(ctx context.Context, token string) (*repository.PasswordResetToken, error) {
	return nil, pgx.ErrNoRows
}

func (memoryResets) Redeem(ctx context.Context, token *repository.PasswordResetToken, hash string) error {
	return repository.ErrResetTokenUsed
}

type portal struct {
	app      *fiber.App
	users    *memoryUsers
	tokens   *auth.TokenManager
	admin    *domain.User
	official *domain.User
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	hash, err := auth.HashPassword("admin-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	admin := &domain.User{
		ID:           uuid.NewString(),
		Username:     "admin",
		Email:        "admin@example.org",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		FirstName:    "Maria",
		LastName:     "Santos",
		IsActive:     true,
	}
	official := &domain.User{
		ID:       uuid.NewString(),
		Username: "official",
		Email:    "official@example.org",
		Role:     domain.RoleSKOfficial,
		IsActive: true,
	}
	users := &memoryUsers{users: map[string]*domain.User{admin.ID: admin, official.ID: official}}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager("router-test-secret", time.Hour)
	routes := auth.DefaultRouteTable()
	cookie := auth.SessionCookie{Name: "auth-session"}
	sessions := auth.NewSessionResolver(tokens, routes, users, cookie, logger)

	authService := service.NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost}, service.AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: memoryResets{},
		Tokens:            tokens,
		Routes:            routes,
		Limiter:           service.NewSignInLimiter(rdb, service.SignInLimiterConfig{}),
		Logger:            logger,
	})

	app := fiber.New()
	apihttp.RegisterMiddlewares(app, logger, metrics, time.Second)
	apihttp.RegisterRoutes(app, apihttp.RouteConfig{
		Health: handlers.NewHealthHandler("youth-portal", "test", nil, metrics),
		Auth:   handlers.NewAuthHandler(authService, sessions, cookie, logger, false),
		Pages:  handlers.NewPagesHandler(sessions, routes, cookie),
		Gate:   auth.NewGate(tokens, routes, cookie, logger, metrics),
		Routes: routes,
	})

	return &portal{app: app, users: users, tokens: tokens, admin: admin, official: official}
}

func (p *portal) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := p.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	return resp
}

func (p *portal) token(t *testing.T, user *domain.User) string {
	t.Helper()
	token, _, err := p.tokens.Issue(user.ID, user.Role)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return token
}

func withSession(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "auth-session", Value: token})
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return out
}

func TestSessionEndpoint(t *testing.T) {
	p := newPortal(t)

	resp := p.do(t, withSession(httptest.NewRequest(http.MethodGet, "/api/auth/session", nil), p.token(t, p.admin)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	user, ok := decode(t, resp)["user"].(map[string]any)
	if !ok || user["id"] != p.admin.ID || user["role"] != "ADMIN" || user["name"] != "Maria Santos" {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatal("session user must not carry the password hash")
	}

	resp = p.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["user"] != nil {
		t.Fatalf("expected null user, got %+v", body)
	}

	stale, _, err := p.tokens.Issue(p.admin.ID, "DELETED_ROLE")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	resp = p.do(t, withSession(httptest.NewRequest(http.MethodGet, "/api/auth/session", nil), stale))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unmapped token role, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["user"] != nil {
		t.Fatalf("expected null user, got %+v", body)
	}

	demoted := p.token(t, p.admin)
	p.admin.Role = domain.RoleSKOfficial
	resp = p.do(t, withSession(httptest.NewRequest(http.MethodGet, "/api/auth/session", nil), demoted))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after role change, got %d", resp.StatusCode)
	}
	p.admin.Role = "DELETED_ROLE"
	resp = p.do(t, withSession(httptest.NewRequest(http.MethodGet, "/api/auth/session", nil), stale))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 when stored and token role are unmapped, got %d", resp.StatusCode)
	}
	p.admin.Role = domain.RoleAdmin

	p.users.err = errors.New("connection refused")
	resp = p.do(t, withSession(httptest.NewRequest(http.MethodGet, "/api/auth/session", nil), p.token(t, p.admin)))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store failure, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["user"] != nil {
		t.Fatalf("expected null user, got %+v", body)
	}
}

func TestSignInFlow(t *testing.T) {
	p := newPortal(t)

	resp := p.do(t, httptest.NewRequest(http.MethodGet, "/admin/users?page=2", nil))
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect for anonymous caller, got %d", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil || loc.Path != "/sign-in" {
		t.Fatalf("unexpected location %q", resp.Header.Get("Location"))
	}
	redirect := loc.Query().Get("redirect")
	if redirect != "/admin/users?page=2" {
		t.Fatalf("expected original destination to be kept, got %q", redirect)
	}

	payload := `{"identifier":"admin@example.org","password":"admin-password","redirect":"` + redirect + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp = p.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected sign-in to succeed, got %d", resp.StatusCode)
	}

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "auth-session" {
			session = c
		}
	}
	if session == nil || session.Value == "" || !session.HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", session)
	}
	data, _ := decode(t, resp)["data"].(map[string]any)
	if data["redirect"] != "/admin/users?page=2" {
		t.Fatalf("unexpected redirect %v", data["redirect"])
	}

	resp = p.do(t, withSession(httptest.NewRequest(http.MethodGet, "/admin/users", nil), session.Value))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected admin page, got %d", resp.StatusCode)
	}
	if page := decode(t, resp); page["dashboard"] != "/admin/dashboard" {
		t.Fatalf("unexpected page %+v", page)
	}

	resp = p.do(t, withSession(httptest.NewRequest(http.MethodGet, "/sign-in", nil), session.Value))
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/admin/dashboard" {
		t.Fatalf("expected signed-in caller to leave sign-in, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = p.do(t, withSession(httptest.NewRequest(http.MethodGet, "/sk-official/dashboard", nil), session.Value))
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/admin/dashboard" {
		t.Fatalf("expected admin to be sent to own dashboard, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestSignInRejected(t *testing.T) {
	p := newPortal(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", strings.NewReader(`{"identifier":"admin","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := p.do(t, req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	errBody, _ := decode(t, resp)["error"].(map[string]any)
	if errBody["code"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected error body %+v", errBody)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "auth-session" {
			t.Fatal("failed sign-in must not set a session cookie")
		}
	}
}

func TestDeactivatedAccountLosesProtectedPage(t *testing.T) {
	p := newPortal(t)
	token := p.token(t, p.admin)
	p.admin.IsActive = false

	resp := p.do(t, withSession(httptest.NewRequest(http.MethodGet, "/admin", nil), token))
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Location"), "/sign-in?redirect=") {
		t.Fatalf("unexpected location %q", resp.Header.Get("Location"))
	}
	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == "auth-session" && c.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected session cookie to be cleared")
	}
}

func TestPublicPagesAndProbes(t *testing.T) {
	p := newPortal(t)

	resp := p.do(t, httptest.NewRequest(http.MethodGet, "/announcements/2026-budget", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected public page, got %d", resp.StatusCode)
	}
	if page := decode(t, resp); page["user"] != nil {
		t.Fatalf("anonymous public page must carry a null user, got %+v", page)
	}

	resp = p.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected liveness probe to bypass the gate, got %d", resp.StatusCode)
	}

	resp = p.do(t, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected excluded api path to 404 rather than redirect, got %d", resp.StatusCode)
	}
}

func TestCrossRolePagesStayClosed(t *testing.T) {
	p := newPortal(t)
	official := p.token(t, p.official)

	for _, path := range []string{
		"/admin/dashboard",
		"/admin/x.txt",
		"/admin/dashboard.txt",
		"/admin/reports.json.js",
		"/ADMIN/dashboard",
		"/Admin/settings.css",
		"/sk-federation/budget.png",
	} {
		resp := p.do(t, withSession(httptest.NewRequest(http.MethodGet, path, nil), official))
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/sk-official/dashboard" {
			t.Fatalf("%s: expected redirect to own dashboard, got %d %q", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}

	resp := p.do(t, httptest.NewRequest(http.MethodGet, "/admin/x.txt", nil))
	if resp.StatusCode != http.StatusFound || !strings.HasPrefix(resp.Header.Get("Location"), "/sign-in?redirect=") {
		t.Fatalf("expected anonymous asset-looking page to go to sign-in, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = p.do(t, withSession(httptest.NewRequest(http.MethodGet, "/admin/x.txt", nil), p.token(t, p.admin)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected admin to reach own page, got %d", resp.StatusCode)
	}

	resp = p.do(t, withSession(httptest.NewRequest(http.MethodGet, "/robots.txt", nil), official))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected excluded asset outside page routes to 404, got %d", resp.StatusCode)
	}
}

func TestForgotPasswordHidesToken(t *testing.T) {
	p := newPortal(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password", strings.NewReader(`{"email":"admin@example.org"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := p.do(t, req)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	data, _ := decode(t, resp)["data"].(map[string]any)
	if _, exposed := data["reset_token"]; exposed {
		t.Fatalf("reset token must not be returned by default, got %+v", data)
	}
}
