package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dreamtoapp/jbrtechno-admin/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for grants and
// principal lookups. It implements GrantStore and PrincipalDirectory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindPrincipal fetches a principal by ID.
func (r *Repository) FindPrincipal(ctx context.Context, id string) (Principal, error) {
	var p Principal
	var role string
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, role, is_active FROM users WHERE id = $1`, id,
	).Scan(&p.ID, &p.Email, &p.DisplayName, &role, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrPrincipalNotFound
		}
		return Principal{}, fmt.Errorf("authz: find principal: %w", err)
	}
	p.Role = Role(role)
	return p, nil
}

// ListGrants returns the granted routes for a principal ordered by route.
// Unknown principals yield an empty list, not an error.
func (r *Repository) ListGrants(ctx context.Context, principalID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT route FROM route_grants WHERE principal_id = $1 ORDER BY route`, principalID)
	if err != nil {
		return nil, fmt.Errorf("authz: list grants: %w", err)
	}
	defer rows.Close()
	var routes []string
	for rows.Next() {
		var route string
		if err := rows.Scan(&route); err != nil {
			return nil, fmt.Errorf("authz: scan grant: %w", err)
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: list grants: %w", err)
	}
	return routes, nil
}

// HasGrant performs an exact-match existence check.
func (r *Repository) HasGrant(ctx context.Context, principalID, route string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM route_grants WHERE principal_id = $1 AND route = $2)`,
		principalID, route,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("authz: has grant: %w", err)
	}
	return exists, nil
}

// HasAnyGrant reports whether the principal holds at least one grant.
func (r *Repository) HasAnyGrant(ctx context.Context, principalID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM route_grants WHERE principal_id = $1)`, principalID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("authz: has any grant: %w", err)
	}
	return exists, nil
}

// ReplaceGrants atomically clears all grants for the principal and inserts
// the given routes. A concurrent resolve never observes a partial state.
func (r *Repository) ReplaceGrants(ctx context.Context, principalID string, routes []string) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM route_grants WHERE principal_id = $1`, principalID); err != nil {
			return fmt.Errorf("authz: clear grants: %w", err)
		}
		for _, route := range routes {
			if _, err := tx.Exec(ctx,
				`INSERT INTO route_grants (principal_id, route, created_at) VALUES ($1, $2, NOW())`,
				principalID, route,
			); err != nil {
				return fmt.Errorf("authz: insert grant: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrPrincipalNotFound
		}
		return err
	}
	return nil
}

// PrincipalGrants pairs a principal with its granted routes for the
// administration overview.
type PrincipalGrants struct {
	Principal Principal
	Routes    []string
}

// ListPrincipalsWithGrants returns every principal with its grant set,
// newest principal first.
func (r *Repository) ListPrincipalsWithGrants(ctx context.Context) ([]PrincipalGrants, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, u.name, u.role, u.is_active, g.route
		FROM users u
		LEFT JOIN route_grants g ON g.principal_id = u.id
		ORDER BY u.created_at DESC, g.route`)
	if err != nil {
		return nil, fmt.Errorf("authz: list principals with grants: %w", err)
	}
	defer rows.Close()

	var out []PrincipalGrants
	index := make(map[string]int)
	for rows.Next() {
		var p Principal
		var role string
		var route *string
		if err := rows.Scan(&p.ID, &p.Email, &p.DisplayName, &role, &p.Active, &route); err != nil {
			return nil, fmt.Errorf("authz: scan principal grants: %w", err)
		}
		p.Role = Role(role)
		i, ok := index[p.ID]
		if !ok {
			out = append(out, PrincipalGrants{Principal: p})
			i = len(out) - 1
			index[p.ID] = i
		}
		if route != nil {
			out[i].Routes = append(out[i].Routes, *route)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: list principals with grants: %w", err)
	}
	return out, nil
}

var (
	_ GrantStore         = (*Repository)(nil)
	_ PrincipalDirectory = (*Repository)(nil)
)
