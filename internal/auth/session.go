package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sk-federation/youth-portal/internal/domain"
	"github.com/sk-federation/youth-portal/internal/repository"
)

// ErrNoSession is returned when the caller has no usable session. Every
// cause except a store failure wraps it.
var ErrNoSession = errors.New("no session")

var (
	ErrUnknownRole      = fmt.Errorf("%w: role not configured", ErrNoSession)
	ErrAccountNotFound  = fmt.Errorf("%w: account not found", ErrNoSession)
	ErrAccountInactive  = fmt.Errorf("%w: account inactive", ErrNoSession)
	ErrStoreUnavailable = errors.New("user store unavailable")
)

// SessionResolver turns a session token into the full caller record.
type SessionResolver struct {
	tokens *TokenManager
	routes RouteTable
	users  repository.UserRepository
	cookie SessionCookie
	logger *zap.Logger
}

// NewSessionResolver constructs the resolver.
func NewSessionResolver(tokens *TokenManager, routes RouteTable, users repository.UserRepository, cookie SessionCookie, logger *zap.Logger) *SessionResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionResolver{tokens: tokens, routes: routes, users: users, cookie: cookie, logger: logger}
}

// Lookup verifies the token and loads its user with one store read. A token
// role missing from the route table, or differing from the stored role, is
// ErrUnknownRole. Errors wrap ErrNoSession, or ErrStoreUnavailable when the
// store failed.
func (r *SessionResolver) Lookup(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := r.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSession, ErrMalformedToken)
	}
	if _, ok := r.routes.Lookup(claims.Role); !ok {
		return nil, ErrUnknownRole
	}

	user, err := r.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	// A role change since sign-in invalidates the token.
	if user.Role != claims.Role {
		return nil, ErrUnknownRole
	}
	return domain.NewSession(user), nil
}

// Resolve is Lookup with every failure folded into a nil session.
func (r *SessionResolver) Resolve(ctx context.Context, token string) *domain.Session {
	session, err := r.Lookup(ctx, token)
	if err != nil {
		r.logFailure(err)
		return nil
	}
	return session
}

// ResolveRequest resolves the session for the current request. The result is
// kept in the request locals so repeated calls within one request share it.
func (r *SessionResolver) ResolveRequest(c *fiber.Ctx) *domain.Session {
	if cached, ok := c.Locals(sessionKey).(*domain.Session); ok {
		return cached
	}
	session := r.Resolve(c.UserContext(), r.cookie.Read(c))
	if session != nil {
		c.Locals(sessionKey, session)
	}
	return session
}

func (r *SessionResolver) logFailure(err error) {
	switch {
	case errors.Is(err, ErrMissingToken):
	case errors.Is(err, ErrStoreUnavailable):
		r.logger.Warn("session lookup failed", zap.Error(err))
	case errors.Is(err, ErrUnknownRole):
		r.logger.Warn("session role not configured or changed", zap.Error(err))
	default:
		r.logger.Debug("no session", zap.Error(err))
	}
}
