package domain

import "time"

// User is the persisted account of a portal member.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Barangay     *string
	FirstName    string
	LastName     string
	Position     *string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
