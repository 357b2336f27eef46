package authz

import (
	"errors"
	"time"
)

// Role is the closed set of principal roles.
type Role string

const (
	// RoleSuper bypasses all grant checks.
	RoleSuper Role = "SUPER_ADMIN"
	// RoleStaff requires explicit route grants beyond the default routes.
	RoleStaff Role = "STAFF"
)

// ParseRole validates a raw role value against the closed set.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleSuper:
		return RoleSuper, nil
	case RoleStaff:
		return RoleStaff, nil
	}
	return "", errors.New("authz: unknown role " + raw)
}

// Principal is an authenticated actor as seen by the resolver.
type Principal struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
	Active      bool
}

// Grant is a persisted (principal, route) authorization record.
type Grant struct {
	PrincipalID string
	Route       string
	CreatedAt   time.Time
}

// Decision is the outcome of a permission resolution.
type Decision int

const (
	// Deny blocks access to the requested route.
	Deny Decision = iota
	// Allow grants access to the requested route.
	Allow
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

var (
	// ErrUnauthorized indicates the caller of an administration operation
	// does not hold the super role.
	ErrUnauthorized = errors.New("authz: unauthorized")
	// ErrPrincipalNotFound indicates the target principal does not exist.
	ErrPrincipalNotFound = errors.New("authz: principal not found")
	// ErrCannotModifySuper indicates a grant mutation targeted a super
	// principal. Super principals bypass grants, so stored grants for them
	// would be dead data.
	ErrCannotModifySuper = errors.New("authz: cannot modify super admin permissions")
)
