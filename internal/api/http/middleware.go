package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sk-federation/youth-portal/internal/observability"
	apperrors "github.com/sk-federation/youth-portal/pkg/util"
)

// RegisterMiddlewares attaches the request logger, the per-request timeout
// and the error renderer. The logger runs outermost so it sees the final
// status, including redirects issued by the gate.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("request_id", requestID(c)),
					zap.String("path", c.Path()),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				writeError(c, logger, metrics, apperrors.ToDomainError(err))
				err = nil
			}
		}()
		return c.Next()
	}
}

// writeError renders {"error": {...}}. Session-related rejections (401, 403,
// 429) are routine and logged at debug; server errors at error.
func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, domainErr *apperrors.DomainError) {
	if metrics != nil {
		metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
	}

	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	if id := requestID(c); id != "" {
		body["request_id"] = id
	}

	fields := []zap.Field{
		zap.String("request_id", requestID(c)),
		zap.String("path", c.Path()),
		zap.String("code", domainErr.Code),
	}
	switch {
	case domainErr.HTTPStatus >= 500:
		logger.Error("request failed", append(fields, zap.Error(domainErr))...)
	case domainErr.HTTPStatus == fiber.StatusUnauthorized,
		domainErr.HTTPStatus == fiber.StatusForbidden,
		domainErr.HTTPStatus == fiber.StatusTooManyRequests:
		logger.Debug("request rejected", fields...)
	}

	c.Status(domainErr.HTTPStatus)
	_ = c.JSON(fiber.Map{"error": body})
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(observability.RequestIDHeader)
}
