package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sk-federation/youth-portal/internal/domain"
)

// ErrInvalidToken is the single failure callers need to test for. The more
// specific errors below all wrap it so logs can still tell them apart.
var ErrInvalidToken = errors.New("invalid session token")

var (
	ErrMissingToken   = fmt.Errorf("%w: missing", ErrInvalidToken)
	ErrMalformedToken = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrExpiredToken   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrMissingClaim   = fmt.Errorf("%w: missing required claim", ErrInvalidToken)
)

// TokenManager signs and verifies session tokens with a pre-shared secret.
// It is safe for concurrent use; the secret never changes after construction.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Claims describes the session token payload.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// SubjectID returns the user identifier carried in "sub".
func (c *Claims) SubjectID() string {
	return c.Subject
}

// TTL returns the lifetime applied to issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue builds and signs a token for the user.
func (tm *TokenManager) Issue(subjectID string, role domain.Role) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify validates signature and expiry and returns the claims. An empty
// token fails with ErrMissingToken before any signature work is done.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, ErrMissingClaim
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrMissingClaim, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
