package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dreamtoapp/jbrtechno-admin/internal/auth"
	"github.com/dreamtoapp/jbrtechno-admin/internal/authz"
	"github.com/dreamtoapp/jbrtechno-admin/internal/observability"
	"github.com/dreamtoapp/jbrtechno-admin/internal/platform/httpx"
	"github.com/dreamtoapp/jbrtechno-admin/internal/shared"
	"github.com/dreamtoapp/jbrtechno-admin/internal/users"
	"github.com/dreamtoapp/jbrtechno-admin/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	Gate               *authz.Gate
	Grants             authz.GrantStore
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *authz.PermissionsHandler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Gate:           params.Gate,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := shared.IdentityFromContext(r.Context())
		if !ok {
			// The gate already redirects unauthenticated requests; this is
			// a fallback for direct hits in tests.
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
			return
		}
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
		httpx.JSON(w, http.StatusOK, map[string]any{
			"page":       "dashboard",
			"principal":  identity.PrincipalID,
			"role":       identity.Role,
			"csrf_token": csrfToken,
		})
	})

	loginPath := "/login"
	noAccessPath := "/no-permissions"
	if params.Config != nil {
		if params.Config.GateLoginPath != "" {
			loginPath = params.Config.GateLoginPath
		}
		if params.Config.GateNoAccessPath != "" {
			noAccessPath = params.Config.GateNoAccessPath
		}
	}

	r.Get(loginPath, func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		httpx.JSON(w, http.StatusOK, map[string]any{
			"page":       "login",
			"csrf_token": csrfToken,
		})
	})

	// The no-access page performs its own checks: it distinguishes "no
	// routes at all" from "some routes, just not the requested one" for
	// display purposes only.
	r.Get(noAccessPath, func(w http.ResponseWriter, r *http.Request) {
		identity, ok := shared.IdentityFromContext(r.Context())
		if !ok {
			httpx.JSON(w, http.StatusOK, map[string]any{
				"page":  "no-permissions",
				"login": loginPath,
			})
			return
		}
		hasRoutes := false
		if any, err := params.Grants.HasAnyGrant(r.Context(), identity.PrincipalID); err == nil {
			hasRoutes = any
		} else if params.Logger != nil {
			params.Logger.Warn("no-access grant lookup", slog.Any("error", err))
		}
		httpx.JSON(w, http.StatusOK, map[string]any{
			"page":       "no-permissions",
			"has_routes": hasRoutes,
			"reason":     r.URL.Query().Get("reason"),
		})
	})

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", func(jr chi.Router) {
			jr.Use(authz.Guard{}.RequireSuper)
			params.JobsHandler.MountRoutes(jr)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
