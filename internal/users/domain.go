package users

import (
	"time"

	"github.com/dreamtoapp/jbrtechno-admin/internal/authz"
)

// User represents a principal account under administration.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      authz.Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
