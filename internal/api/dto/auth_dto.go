package dto

import (
	"time"

	"github.com/sk-federation/youth-portal/internal/domain"
)

// SignInRequest payload for sign-in. Identifier is a username or email.
type SignInRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Redirect   string `json:"redirect"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// SessionUser is the client-facing view of a session. It never carries the
// password hash.
type SessionUser struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Role        domain.Role `json:"role"`
	Barangay    *string     `json:"barangay"`
	Position    *string     `json:"position"`
	IsActive    bool        `json:"is_active"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty"`
}

// SignInResponse is returned after a successful sign-in.
type SignInResponse struct {
	User      SessionUser `json:"user"`
	Redirect  string      `json:"redirect"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// NewSessionUser maps a user record to its client-facing view.
func NewSessionUser(user *domain.User) *SessionUser {
	if user == nil {
		return nil
	}
	return &SessionUser{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Name:        user.FullName(),
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Role:        user.Role,
		Barangay:    user.Barangay,
		Position:    user.Position,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
	}
}

// FromSession maps a resolved session; nil stays nil.
func FromSession(session *domain.Session) *SessionUser {
	if session == nil {
		return nil
	}
	return NewSessionUser(&session.User)
}
