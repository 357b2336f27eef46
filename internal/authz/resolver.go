package authz

import (
	"context"
	"errors"
	"log/slog"
)

// GrantStore is the durable mapping of (principal, route) grants consumed
// by the resolver and the administration service.
type GrantStore interface {
	// ListGrants returns the granted routes for a principal, empty for an
	// unknown principal.
	ListGrants(ctx context.Context, principalID string) ([]string, error)
	// HasGrant is an exact-match existence check.
	HasGrant(ctx context.Context, principalID, route string) (bool, error)
	// HasAnyGrant reports whether the principal holds at least one grant.
	HasAnyGrant(ctx context.Context, principalID string) (bool, error)
	// ReplaceGrants atomically clears and re-inserts the grant set.
	ReplaceGrants(ctx context.Context, principalID string, routes []string) error
}

// PrincipalDirectory resolves principal records for authorization checks.
type PrincipalDirectory interface {
	// FindPrincipal returns ErrPrincipalNotFound for unknown IDs.
	FindPrincipal(ctx context.Context, id string) (Principal, error)
}

// Resolver computes Allow/Deny for a (route, principal) pair. It performs
// no mutation and is safe for concurrent use. Store failures degrade to
// Deny rather than surfacing to callers.
type Resolver struct {
	catalog   *Catalog
	directory PrincipalDirectory
	grants    GrantStore
	logger    *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(catalog *Catalog, directory PrincipalDirectory, grants GrantStore, logger *slog.Logger) *Resolver {
	return &Resolver{catalog: catalog, directory: directory, grants: grants, logger: logger}
}

// Resolve decides whether the principal may access the route. The walk
// order is most-specific prefix first so a hit exits early; all ancestor
// levels are equivalent grants of access.
func (r *Resolver) Resolve(ctx context.Context, route, principalID string) Decision {
	principal, err := r.directory.FindPrincipal(ctx, principalID)
	if err != nil {
		if !errors.Is(err, ErrPrincipalNotFound) {
			r.logf(ctx, "resolve principal lookup", route, principalID, err)
		}
		return Deny
	}
	if !principal.Active {
		return Deny
	}
	if principal.Role == RoleSuper {
		return Allow
	}

	if r.catalog.IsDefaultRoute(route) {
		return Allow
	}
	prefixes := AncestorPaths(route)
	for _, prefix := range prefixes {
		if r.catalog.IsDefaultRoute(prefix) {
			return Allow
		}
	}

	granted, err := r.grants.HasGrant(ctx, principalID, route)
	if err != nil {
		r.logf(ctx, "resolve exact grant", route, principalID, err)
		return Deny
	}
	if granted {
		return Allow
	}

	for _, prefix := range prefixes {
		granted, err := r.grants.HasGrant(ctx, principalID, prefix)
		if err != nil {
			r.logf(ctx, "resolve ancestor grant", route, principalID, err)
			return Deny
		}
		if granted {
			return Allow
		}
	}

	return Deny
}

func (r *Resolver) logf(ctx context.Context, msg, route, principalID string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.ErrorContext(ctx, msg,
		slog.String("route", route),
		slog.String("principal_id", principalID),
		slog.Any("error", err),
	)
}
