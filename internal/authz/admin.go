package authz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dreamtoapp/jbrtechno-admin/internal/shared"
)

// Notifier delivers out-of-band notifications about permission changes.
// Delivery is best effort and never fails the mutation.
type Notifier interface {
	PermissionsChanged(ctx context.Context, principal Principal, routes []string) error
}

// AdminService implements the privileged grant management workflow. Every
// operation requires the caller to hold the super role; failures surface
// as typed errors rather than redirects because this is a programmatic API.
type AdminService struct {
	catalog   *Catalog
	grants    GrantStore
	directory PrincipalDirectory
	overview  OverviewLister
	activity  *shared.ActivityLogger
	notifier  Notifier
	logger    *slog.Logger
}

// OverviewLister supplies the all-principals view for administrators.
type OverviewLister interface {
	ListPrincipalsWithGrants(ctx context.Context) ([]PrincipalGrants, error)
}

// NewAdminService constructs an AdminService. Activity logger and notifier
// may be nil.
func NewAdminService(catalog *Catalog, grants GrantStore, directory PrincipalDirectory, overview OverviewLister, activity *shared.ActivityLogger, notifier Notifier, logger *slog.Logger) *AdminService {
	return &AdminService{
		catalog:   catalog,
		grants:    grants,
		directory: directory,
		overview:  overview,
		activity:  activity,
		notifier:  notifier,
		logger:    logger,
	}
}

// ListGrants returns the target principal's granted routes in order.
func (s *AdminService) ListGrants(ctx context.Context, caller shared.Identity, principalID string) ([]string, error) {
	if err := s.requireSuper(caller); err != nil {
		return nil, err
	}
	routes, err := s.grants.ListGrants(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if routes == nil {
		routes = []string{}
	}
	return routes, nil
}

// ReplaceGrants atomically swaps the target principal's full grant set.
// Default routes in the input are dropped silently: they are implicit and
// never individually stored. Routes outside the assignable set are dropped
// as well. Super principals are rejected, not silently accepted.
func (s *AdminService) ReplaceGrants(ctx context.Context, caller shared.Identity, principalID string, routes []string) error {
	if err := s.requireSuper(caller); err != nil {
		return err
	}

	target, err := s.directory.FindPrincipal(ctx, principalID)
	if err != nil {
		return err
	}
	if target.Role == RoleSuper {
		return ErrCannotModifySuper
	}

	filtered := make([]string, 0, len(routes))
	seen := make(map[string]struct{}, len(routes))
	for _, route := range routes {
		route = NormalizeRoute(route)
		if !s.catalog.IsAssignableRoute(route) {
			continue
		}
		if _, dup := seen[route]; dup {
			continue
		}
		seen[route] = struct{}{}
		filtered = append(filtered, route)
	}

	if err := s.grants.ReplaceGrants(ctx, principalID, filtered); err != nil {
		return fmt.Errorf("authz: replace grants: %w", err)
	}

	if s.activity != nil {
		if err := s.activity.Record(ctx, shared.ActivityEntry{
			ActorID:     caller.PrincipalID,
			Type:        shared.ActivityPermissionUpdated,
			Description: "route permissions replaced",
			Meta:        map[string]any{"principal_id": principalID, "routes": filtered},
		}); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "record permission activity", slog.Any("error", err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.PermissionsChanged(ctx, target, filtered); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "notify permission change", slog.Any("error", err))
		}
	}
	return nil
}

// ListAllPrincipalGrants returns every principal with its grant set for
// the administration overview screen.
func (s *AdminService) ListAllPrincipalGrants(ctx context.Context, caller shared.Identity) ([]PrincipalGrants, error) {
	if err := s.requireSuper(caller); err != nil {
		return nil, err
	}
	return s.overview.ListPrincipalsWithGrants(ctx)
}

// AssignableRoutes exposes the catalog's assignable routes for pickers.
func (s *AdminService) AssignableRoutes() []RouteInfo {
	return s.catalog.AssignableRoutes()
}

func (s *AdminService) requireSuper(caller shared.Identity) error {
	if !caller.Valid() || Role(caller.Role) != RoleSuper {
		return ErrUnauthorized
	}
	return nil
}
