package authz

import (
	"net/http"

	"github.com/dreamtoapp/jbrtechno-admin/internal/platform/httpx"
	"github.com/dreamtoapp/jbrtechno-admin/internal/shared"
)

// Guard wires role checks for JSON administration endpoints.
type Guard struct{}

// RequireSuper rejects requests whose session does not resolve to the
// super role. Administration endpoints answer with a problem document,
// not a redirect.
func (Guard) RequireSuper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := shared.IdentityFromContext(r.Context())
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		if Role(identity.Role) != RoleSuper {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "super admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
