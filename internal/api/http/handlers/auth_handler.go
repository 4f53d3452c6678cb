package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sk-federation/youth-portal/internal/api/dto"
	"github.com/sk-federation/youth-portal/internal/auth"
	"github.com/sk-federation/youth-portal/internal/service"
	apperrors "github.com/sk-federation/youth-portal/pkg/util"
)

// AuthHandler exposes the /api/auth endpoints.
type AuthHandler struct {
	auth             *service.AuthService
	sessions         *auth.SessionResolver
	cookie           auth.SessionCookie
	logger           *zap.Logger
	exposeResetToken bool
}

// NewAuthHandler constructs handler. exposeResetToken returns reset tokens in
// the response body; it is meant for development only.
func NewAuthHandler(authService *service.AuthService, sessions *auth.SessionResolver, cookie auth.SessionCookie, logger *zap.Logger, exposeResetToken bool) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		auth:             authService,
		sessions:         sessions,
		cookie:           cookie,
		logger:           logger,
		exposeResetToken: exposeResetToken,
	}
}

// SignIn handles POST /api/auth/sign-in.
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		return apperrors.NewValidationError("identifier and password required", nil)
	}

	result, err := h.auth.SignIn(c.UserContext(), req.Identifier, req.Password, req.Redirect, c.IP())
	if err != nil {
		return signInError(err)
	}

	h.cookie.Set(c, result.Token, result.ExpiresAt)
	return c.JSON(fiber.Map{
		"data": dto.SignInResponse{
			User:      *dto.NewSessionUser(result.User),
			Redirect:  result.Redirect,
			ExpiresAt: result.ExpiresAt,
		},
	})
}

// SignOut handles POST /api/auth/sign-out.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	h.auth.SignOut(c.UserContext(), h.sessions.ResolveRequest(c))
	h.cookie.Clear(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "signed_out"}})
}

// Session handles GET /api/auth/session.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	session, err := h.sessions.Lookup(c.UserContext(), h.cookie.Read(c))
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"user": dto.FromSession(session)})
	case errors.Is(err, auth.ErrNoSession):
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"user": nil})
	default:
		h.logger.Error("session lookup failed", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"user": nil})
	}
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	token, err := h.auth.RequestPasswordReset(c.UserContext(), req.Email)
	if err != nil {
		return apperrors.MapError(err)
	}

	data := fiber.Map{"status": "reset_requested"}
	if h.exposeResetToken && token != nil {
		data["reset_token"] = token.Token
		data["expires_at"] = token.ExpiresAt
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": data})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("token and new password required", nil)
	}

	err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_reset"}})
	case errors.Is(err, service.ErrWeakPassword), errors.Is(err, service.ErrResetTokenInvalid):
		return apperrors.NewValidationError(err.Error(), nil)
	default:
		return apperrors.MapError(err)
	}
}

func signInError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperrors.NewUnauthorized("invalid credentials")
	case errors.Is(err, service.ErrAccountDisabled), errors.Is(err, service.ErrRoleNotConfigured):
		return apperrors.NewForbidden(err.Error())
	case errors.Is(err, service.ErrSignInThrottled):
		return apperrors.NewTooManyRequests("too many failed attempts; try again later")
	default:
		return apperrors.MapError(err)
	}
}
