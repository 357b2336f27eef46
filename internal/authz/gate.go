package authz

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dreamtoapp/jbrtechno-admin/internal/shared"
)

// Gate outcomes, one terminal outcome per request.
const (
	OutcomeBypass             = "bypass"
	OutcomeNoPermissionsPage  = "no_permissions_page"
	OutcomeUnauthenticated    = "unauthenticated"
	OutcomeForbiddenNoGrants  = "forbidden_no_grants"
	OutcomeForbiddenHasGrants = "forbidden_with_grants"
	OutcomeAllowed            = "allowed"
	OutcomeLoginRedirect      = "login_redirect"
	OutcomeLoginPage          = "login_page"
	OutcomeUnprotected        = "unprotected"
)

// CallbackParam carries the originally requested path through the login
// redirect so the user returns there after authenticating.
const CallbackParam = "callbackUrl"

// GateConfig holds the gate's routing configuration. Excluded prefixes are
// configuration, not logic: auth endpoints, uploads and static assets skip
// the session check entirely.
type GateConfig struct {
	LoginPath        string
	NoAccessPath     string
	LegacyCookieName string
	ExcludedPrefixes []string
}

// OutcomeObserver records terminal gate outcomes, typically for metrics.
type OutcomeObserver interface {
	GateOutcome(outcome string)
}

// Gate is the request-time enforcement point. It validates the session,
// special-cases the login and no-access routes, consults the resolver and
// turns the verdict into proceed-or-redirect. It never surfaces a raw
// error page on denial.
type Gate struct {
	config   GateConfig
	catalog  *Catalog
	resolver *Resolver
	grants   GrantStore
	observer OutcomeObserver
	logger   *slog.Logger
}

// NewGate constructs a Gate. The observer may be nil.
func NewGate(config GateConfig, catalog *Catalog, resolver *Resolver, grants GrantStore, observer OutcomeObserver, logger *slog.Logger) *Gate {
	if config.LoginPath == "" {
		config.LoginPath = "/login"
	}
	if config.NoAccessPath == "" {
		config.NoAccessPath = "/no-permissions"
	}
	return &Gate{
		config:   config,
		catalog:  catalog,
		resolver: resolver,
		grants:   grants,
		observer: observer,
		logger:   logger,
	}
}

// Middleware gates every inbound request. It expects the session middleware
// to have run first so the session is available on the request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		for _, prefix := range g.config.ExcludedPrefixes {
			if strings.HasPrefix(path, prefix) {
				g.proceed(w, r, next, OutcomeBypass)
				return
			}
		}

		// The no-access page performs its own checks; gating it here would
		// redirect to itself forever.
		if path == g.config.NoAccessPath {
			g.proceed(w, r, next, OutcomeNoPermissionsPage)
			return
		}

		if path == g.config.LoginPath {
			g.handleLoginRoute(w, r, next)
			return
		}

		if !g.catalog.Covers(path) {
			g.proceed(w, r, next, OutcomeUnprotected)
			return
		}

		identity, ok := shared.IdentityFromContext(r.Context())
		if !ok {
			g.redirectToLogin(w, r, path)
			return
		}

		route := NormalizeRoute(path)
		if g.resolver.Resolve(r.Context(), route, identity.PrincipalID) == Allow {
			g.proceed(w, r, next, OutcomeAllowed)
			return
		}

		outcome := OutcomeForbiddenHasGrants
		reason := "forbidden"
		if !g.hasAnyGrant(r.Context(), identity.PrincipalID) {
			outcome = OutcomeForbiddenNoGrants
			reason = "no-grants"
		}
		g.redirect(w, r, g.config.NoAccessPath+"?reason="+reason, outcome)
	})
}

// handleLoginRoute redirects authenticated principals away from the login
// page: to the no-access page when they hold zero grants, otherwise to the
// validated callback target or the dashboard root.
func (g *Gate) handleLoginRoute(w http.ResponseWriter, r *http.Request, next http.Handler) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		g.proceed(w, r, next, OutcomeLoginPage)
		return
	}

	if Role(identity.Role) != RoleSuper && !g.hasAnyGrant(r.Context(), identity.PrincipalID) {
		g.redirect(w, r, g.config.NoAccessPath, OutcomeLoginRedirect)
		return
	}

	target := "/"
	if callback := r.URL.Query().Get(CallbackParam); callback != "" {
		if decoded, err := url.QueryUnescape(callback); err == nil && strings.HasPrefix(decoded, "/") {
			target = decoded
		}
	}
	g.redirect(w, r, target, OutcomeLoginRedirect)
}

func (g *Gate) redirectToLogin(w http.ResponseWriter, r *http.Request, requested string) {
	target := g.config.LoginPath + "?" + CallbackParam + "=" + url.QueryEscape(requested)
	g.redirect(w, r, target, OutcomeUnauthenticated)
}

// hasAnyGrant fails closed: a store error counts as zero grants so the
// principal lands on the no-access page rather than an error page.
func (g *Gate) hasAnyGrant(ctx context.Context, principalID string) bool {
	any, err := g.grants.HasAnyGrant(ctx, principalID)
	if err != nil {
		if g.logger != nil {
			g.logger.ErrorContext(ctx, "gate any-grant check", slog.Any("error", err))
		}
		return false
	}
	return any
}

func (g *Gate) proceed(w http.ResponseWriter, r *http.Request, next http.Handler, outcome string) {
	g.expireLegacyCookie(w, r)
	g.observe(outcome)
	next.ServeHTTP(w, r)
}

func (g *Gate) redirect(w http.ResponseWriter, r *http.Request, target, outcome string) {
	g.expireLegacyCookie(w, r)
	g.observe(outcome)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// expireLegacyCookie removes the deprecated auth cookie on every branch,
// regardless of outcome. Stale legacy credentials must never silently
// continue to exist.
func (g *Gate) expireLegacyCookie(w http.ResponseWriter, r *http.Request) {
	if g.config.LegacyCookieName == "" {
		return
	}
	if _, err := r.Cookie(g.config.LegacyCookieName); err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     g.config.LegacyCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (g *Gate) observe(outcome string) {
	if g.observer != nil {
		g.observer.GateOutcome(outcome)
	}
}
