package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sk-federation/youth-portal/internal/auth"
	"github.com/sk-federation/youth-portal/internal/config"
	"github.com/sk-federation/youth-portal/internal/domain"
	"github.com/sk-federation/youth-portal/internal/events"
	"github.com/sk-federation/youth-portal/internal/repository"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrRoleNotConfigured  = errors.New("account role has no portal section")
	ErrResetTokenInvalid  = errors.New("reset token expired or used")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// SignInResult is what a successful sign-in hands back to the transport.
type SignInResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
	Redirect  string
}

// AuthService is the account side of sessions: it issues tokens at sign-in
// and handles sign-out and password resets.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokens     *auth.TokenManager
	routes     auth.RouteTable
	limiter    *SignInLimiter
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration

	dummyOnce sync.Once
	dummy     string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Tokens            *auth.TokenManager
	Routes            auth.RouteTable
	Limiter           *SignInLimiter
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		tokens:     deps.Tokens,
		routes:     deps.Routes,
		limiter:    deps.Limiter,
		dispatcher: dispatcher,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
		resetTTL:   30 * time.Minute,
	}
}

// SignIn verifies credentials and issues a session token. redirect is the
// page the user originally asked for; it is kept only when the user's role
// may visit it.
func (s *AuthService) SignIn(ctx context.Context, identifier, password, redirect, ip string) (*SignInResult, error) {
	identifier = strings.TrimSpace(identifier)

	if err := s.limiter.Check(ctx, identifier); err != nil {
		if errors.Is(err, ErrSignInThrottled) {
			s.publish(ctx, events.Event{Type: events.EventSignInThrottled, Identifier: identifier, IP: ip})
			return nil, err
		}
		s.logger.Warn("sign-in limiter check failed", zap.Error(err))
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Same bcrypt cost as a known account.
			_ = auth.ComparePassword(s.dummyHash(), password)
			s.recordFailure(ctx, identifier)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.recordFailure(ctx, identifier)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	routeCfg, ok := s.routes.Lookup(user.Role)
	if !ok {
		return nil, ErrRoleNotConfigured
	}

	token, exp, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Reset(ctx, identifier); err != nil {
		s.logger.Warn("sign-in limiter reset failed", zap.Error(err))
	}
	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	event := events.NewEvent(events.EventSignedIn, user.ID)
	event.Identifier, event.IP = identifier, ip
	s.publish(ctx, event)

	return &SignInResult{
		User:      user,
		Token:     token,
		ExpiresAt: exp,
		Redirect:  s.redirectTarget(user.Role, redirect, routeCfg.Dashboard),
	}, nil
}

// SignOut records the sign-out. The token itself dies with the cookie.
func (s *AuthService) SignOut(ctx context.Context, session *domain.Session) {
	if session == nil {
		return
	}
	s.publish(ctx, events.NewEvent(events.EventSignedOut, session.ID))
}

// RequestPasswordReset stores a reset token for the account with that email.
// Unknown emails return (nil, nil) so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByIdentifier(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResetTokenInvalid
		}
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return ErrResetTokenInvalid
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.resets.Redeem(ctx, token, hash); err != nil {
		if errors.Is(err, repository.ErrResetTokenUsed) {
			return ErrResetTokenInvalid
		}
		return err
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordReset, token.UserID))
	return nil
}

// CreateUser hashes the password and stores a new account.
func (s *AuthService) CreateUser(ctx context.Context, user *domain.User, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	if _, ok := s.routes.Lookup(user.Role); !ok {
		return ErrRoleNotConfigured
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Create(ctx, user)
}

func (s *AuthService) redirectTarget(role domain.Role, redirect, dashboard string) string {
	if redirect == "" || !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") {
		return dashboard
	}
	path := redirect
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !s.routes.Allows(role, path) {
		return dashboard
	}
	return redirect
}

func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = auth.HashPassword(uuid.NewString(), s.bcryptCost)
	})
	return s.dummy
}

func (s *AuthService) recordFailure(ctx context.Context, identifier string) {
	if err := s.limiter.RecordFailure(ctx, identifier); err != nil {
		s.logger.Warn("sign-in limiter update failed", zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
