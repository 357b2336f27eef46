package authz_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dreamtoapp/jbrtechno-admin/internal/authz"
	"github.com/dreamtoapp/jbrtechno-admin/internal/shared"
	_ "github.com/dreamtoapp/jbrtechno-admin/testing"
)

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) GateOutcome(outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) last() string {
	if len(o.outcomes) == 0 {
		return ""
	}
	return o.outcomes[len(o.outcomes)-1]
}

type gateFixture struct {
	gate     *authz.Gate
	observer *recordingObserver
	sessions *shared.SessionManager
}

func newGateFixture(t *testing.T, directory stubDirectory, grants *stubGrants) *gateFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)

	catalog := authz.DefaultCatalog()
	resolver := authz.NewResolver(catalog, directory, grants, nil)
	observer := &recordingObserver{}
	gate := authz.NewGate(authz.GateConfig{
		LoginPath:        "/login",
		NoAccessPath:     "/no-permissions",
		LegacyCookieName: "adminToken",
		ExcludedPrefixes: []string{"/auth", "/static", "/healthz"},
	}, catalog, resolver, grants, observer, nil)

	return &gateFixture{gate: gate, observer: observer, sessions: sessions}
}

func (f *gateFixture) request(t *testing.T, target string, identity *shared.Identity) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess, err := f.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if identity != nil {
		sess.SetIdentity(*identity)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func serveGate(gate *authz.Gate, req *http.Request) (*httptest.ResponseRecorder, bool) {
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	res := httptest.NewRecorder()
	gate.Middleware(next).ServeHTTP(res, req)
	return res, reached
}

func staffIdentity(id string) *shared.Identity {
	return &shared.Identity{PrincipalID: id, Role: string(authz.RoleStaff), Email: id + "@test.local"}
}

func TestGateExcludedPrefixBypasses(t *testing.T) {
	f := newGateFixture(t, stubDirectory{}, &stubGrants{})
	res, reached := serveGate(f.gate, f.request(t, "/auth/login", nil))
	if !reached || res.Code != http.StatusOK {
		t.Fatalf("excluded prefix must bypass the gate, code=%d reached=%v", res.Code, reached)
	}
	if f.observer.last() != authz.OutcomeBypass {
		t.Fatalf("expected bypass outcome, got %s", f.observer.last())
	}
}

func TestGateExcludedPrefixBypassesAuthenticated(t *testing.T) {
	dir := stubDirectory{"u1": {ID: "u1", Role: authz.RoleStaff, Active: true}}
	f := newGateFixture(t, dir, &stubGrants{})

	// Zero-grant staff would be denied anywhere in the catalog; the
	// exclusion list must still let them through.
	res, reached := serveGate(f.gate, f.request(t, "/auth/session", staffIdentity("u1")))
	if !reached || res.Code != http.StatusOK {
		t.Fatalf("excluded prefix must bypass the gate for authenticated callers, code=%d reached=%v", res.Code, reached)
	}
	if f.observer.last() != authz.OutcomeBypass {
		t.Fatalf("expected bypass outcome, got %s", f.observer.last())
	}
}

func TestGateNoAccessPageAlwaysProceeds(t *testing.T) {
	f := newGateFixture(t, stubDirectory{}, &stubGrants{})
	_, reached := serveGate(f.gate, f.request(t, "/no-permissions", nil))
	if !reached {
		t.Fatalf("no-access page must never be gated")
	}
	if f.observer.last() != authz.OutcomeNoPermissionsPage {
		t.Fatalf("expected no_permissions_page outcome, got %s", f.observer.last())
	}
}

func TestGateUnprotectedPathProceeds(t *testing.T) {
	f := newGateFixture(t, stubDirectory{}, &stubGrants{})
	_, reached := serveGate(f.gate, f.request(t, "/some-public-page", nil))
	if !reached {
		t.Fatalf("paths outside the catalog must pass through")
	}
	if f.observer.last() != authz.OutcomeUnprotected {
		t.Fatalf("expected unprotected outcome, got %s", f.observer.last())
	}
}

func TestGateUnauthenticatedRedirectsToLogin(t *testing.T) {
	f := newGateFixture(t, stubDirectory{}, &stubGrants{})
	res, reached := serveGate(f.gate, f.request(t, "/tasks/42", nil))
	if reached {
		t.Fatalf("unauthenticated request must not reach the handler")
	}
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	loc, err := url.Parse(res.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Path != "/login" {
		t.Fatalf("expected redirect to /login, got %s", loc.Path)
	}
	if got := loc.Query().Get(authz.CallbackParam); got != "/tasks/42" {
		t.Fatalf("expected callbackUrl=/tasks/42, got %s", got)
	}
}

func TestGateAllowedProceeds(t *testing.T) {
	dir := stubDirectory{"u1": {ID: "u1", Role: authz.RoleStaff, Active: true}}
	grants := &stubGrants{routes: map[string][]string{"u1": {"/tasks"}}}
	f := newGateFixture(t, dir, grants)

	_, reached := serveGate(f.gate, f.request(t, "/tasks/42", staffIdentity("u1")))
	if !reached {
		t.Fatalf("granted principal must reach the handler")
	}
	if f.observer.last() != authz.OutcomeAllowed {
		t.Fatalf("expected allowed outcome, got %s", f.observer.last())
	}
}

func TestGateDeniedWithGrantsRedirectsToNoAccess(t *testing.T) {
	dir := stubDirectory{"u1": {ID: "u1", Role: authz.RoleStaff, Active: true}}
	grants := &stubGrants{routes: map[string][]string{"u1": {"/categories"}}}
	f := newGateFixture(t, dir, grants)

	res, reached := serveGate(f.gate, f.request(t, "/accounting", staffIdentity("u1")))
	if reached {
		t.Fatalf("denied request must not reach the handler")
	}
	if got := res.Header().Get("Location"); got != "/no-permissions?reason=forbidden" {
		t.Fatalf("unexpected redirect target %s", got)
	}
	if f.observer.last() != authz.OutcomeForbiddenHasGrants {
		t.Fatalf("expected forbidden_with_grants, got %s", f.observer.last())
	}
}

func TestGateDeniedWithoutGrantsRedirectsToNoAccess(t *testing.T) {
	dir := stubDirectory{"u1": {ID: "u1", Role: authz.RoleStaff, Active: true}}
	f := newGateFixture(t, dir, &stubGrants{})

	res, _ := serveGate(f.gate, f.request(t, "/accounting", staffIdentity("u1")))
	if got := res.Header().Get("Location"); got != "/no-permissions?reason=no-grants" {
		t.Fatalf("unexpected redirect target %s", got)
	}
	if f.observer.last() != authz.OutcomeForbiddenNoGrants {
		t.Fatalf("expected forbidden_no_grants, got %s", f.observer.last())
	}
}

func TestGateLoginPageUnauthenticatedProceeds(t *testing.T) {
	f := newGateFixture(t, stubDirectory{}, &stubGrants{})
	_, reached := serveGate(f.gate, f.request(t, "/login", nil))
	if !reached {
		t.Fatalf("unauthenticated visitors must see the login page")
	}
	if f.observer.last() != authz.OutcomeLoginPage {
		t.Fatalf("expected login_page outcome, got %s", f.observer.last())
	}
}

func TestGateLoginRedirectsAuthenticatedToCallback(t *testing.T) {
	dir := stubDirectory{"u1": {ID: "u1", Role: authz.RoleStaff, Active: true}}
	grants := &stubGrants{routes: map[string][]string{"u1": {"/tasks"}}}
	f := newGateFixture(t, dir, grants)

	res, reached := serveGate(f.gate, f.request(t, "/login?callbackUrl=%2Ftasks", staffIdentity("u1")))
	if reached {
		t.Fatalf("authenticated principals must be redirected away from login")
	}
	if got := res.Header().Get("Location"); got != "/tasks" {
		t.Fatalf("expected redirect to /tasks, got %s", got)
	}
}

func TestGateLoginRejectsExternalCallback(t *testing.T) {
	dir := stubDirectory{"u1": {ID: "u1", Role: authz.RoleStaff, Active: true}}
	grants := &stubGrants{routes: map[string][]string{"u1": {"/tasks"}}}
	f := newGateFixture(t, dir, grants)

	res, _ := serveGate(f.gate, f.request(t, "/login?callbackUrl=https%3A%2F%2Fevil.test", staffIdentity("u1")))
	if got := res.Header().Get("Location"); got != "/" {
		t.Fatalf("external callback must fall back to /, got %s", got)
	}
}

func TestGateLoginRedirectsZeroGrantStaffToNoAccess(t *testing.T) {
	dir := stubDirectory{"u1": {ID: "u1", Role: authz.RoleStaff, Active: true}}
	f := newGateFixture(t, dir, &stubGrants{})

	res, _ := serveGate(f.gate, f.request(t, "/login", staffIdentity("u1")))
	if got := res.Header().Get("Location"); got != "/no-permissions" {
		t.Fatalf("zero-grant staff must land on no-access, got %s", got)
	}
}

func TestGateLoginNeverBouncesSuperToNoAccess(t *testing.T) {
	dir := stubDirectory{"s1": {ID: "s1", Role: authz.RoleSuper, Active: true}}
	f := newGateFixture(t, dir, &stubGrants{})

	identity := &shared.Identity{PrincipalID: "s1", Role: string(authz.RoleSuper), Email: "s1@test.local"}
	res, _ := serveGate(f.gate, f.request(t, "/login", identity))
	if got := res.Header().Get("Location"); got != "/" {
		t.Fatalf("super admin with zero grants must go to /, got %s", got)
	}
}

func TestGateExpiresLegacyCookie(t *testing.T) {
	f := newGateFixture(t, stubDirectory{}, &stubGrants{})
	req := f.request(t, "/tasks", nil)
	req.AddCookie(&http.Cookie{Name: "adminToken", Value: "stale"})

	res, _ := serveGate(f.gate, req)
	expired := false
	for _, c := range res.Result().Cookies() {
		if c.Name == "adminToken" && c.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Fatalf("legacy cookie must be expired on every gate branch")
	}
}
