package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sk-federation/youth-portal/internal/domain"
)

const testSecret = "test-secret-test-secret"

func newTestTokens() *TokenManager {
	return NewTokenManager(testSecret, time.Hour)
}

func issue(t *testing.T, tm *TokenManager, subject string, role domain.Role) string {
	t.Helper()
	token, _, err := tm.Issue(subject, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func expiredToken(t *testing.T, subject string, role domain.Role) string {
	t.Helper()
	tm := newTestTokens()
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	return issue(t, tm, subject, role)
}

type stubUserRepo struct {
	users map[string]*domain.User
	err   error
	calls int
}

func (s *stubUserRepo) Create(ctx context.Context, user *domain.User) error {
	return errors.New("not implemented")
}

func (s *stubUserRepo) TouchLastLogin(ctx context.Context, id string) error {
	return nil
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (s *stubUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
