package auth

import (
	"time"

	"github.com/dreamtoapp/jbrtechno-admin/internal/authz"
)

// User represents an authenticated user account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         authz.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
