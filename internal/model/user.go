package model

import "time"

// Dashboard roles.  ADMIN may create accounts; AGENT can only manage listings
// and read inquiries.
const (
	RoleAdmin = "ADMIN"
	RoleAgent = "AGENT"
)

// User is a dashboard account (`users` table).  Handlers expose their own
// DTOs, so the password hash never reaches a response.  Inactive accounts
// cannot log in or refresh.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanManageAccounts reports whether u may create dashboard users.
func (u User) CanManageAccounts() bool { return u.IsActive && u.Role == RoleAdmin }
