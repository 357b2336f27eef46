package authz_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/dreamtoapp/jbrtechno-admin/internal/authz"
	"github.com/dreamtoapp/jbrtechno-admin/internal/shared"
	_ "github.com/dreamtoapp/jbrtechno-admin/testing"
)

func newPermissionsRouter(t *testing.T, directory stubDirectory, grants *stubGrants) (chi.Router, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	service := authz.NewAdminService(authz.DefaultCatalog(), grants, directory, &stubOverview{}, nil, nil, nil)
	handler := authz.NewPermissionsHandler(nil, service)

	r := chi.NewRouter()
	r.Route("/permissions", handler.MountRoutes)
	return r, sessions
}

func permissionsRequest(t *testing.T, sessions *shared.SessionManager, method, target, body string, identity *shared.Identity) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	sess, err := sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if identity != nil {
		sess.SetIdentity(*identity)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestPermissionsEndpointsRejectAnonymous(t *testing.T) {
	router, sessions := newPermissionsRouter(t, stubDirectory{}, &stubGrants{})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, permissionsRequest(t, sessions, http.MethodGet, "/permissions/routes", "", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestPermissionsEndpointsRejectStaff(t *testing.T) {
	router, sessions := newPermissionsRouter(t, stubDirectory{}, &stubGrants{})
	res := httptest.NewRecorder()
	identity := staffIdentity("u1")
	router.ServeHTTP(res, permissionsRequest(t, sessions, http.MethodGet, "/permissions/routes", "", identity))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestPermissionsListRoutes(t *testing.T) {
	router, sessions := newPermissionsRouter(t, stubDirectory{}, &stubGrants{})
	res := httptest.NewRecorder()
	caller := superCaller()
	router.ServeHTTP(res, permissionsRequest(t, sessions, http.MethodGet, "/permissions/routes", "", &caller))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		Routes []authz.RouteInfo `json:"routes"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Routes) == 0 {
		t.Fatalf("expected assignable routes in response")
	}
	for _, info := range payload.Routes {
		if info.Route == "/notes" {
			t.Fatalf("default route leaked into the assignable list")
		}
	}
}

func TestPermissionsReplaceGrants(t *testing.T) {
	dir := stubDirectory{"u1": {ID: "u1", Role: authz.RoleStaff, Active: true}}
	grants := &stubGrants{}
	router, sessions := newPermissionsRouter(t, dir, grants)

	caller := superCaller()
	res := httptest.NewRecorder()
	req := permissionsRequest(t, sessions, http.MethodPut, "/permissions/u1", `{"routes":["/tasks","/customers"]}`, &caller)
	router.ServeHTTP(res, req)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", res.Code, res.Body.String())
	}
	if len(grants.replaced["u1"]) != 2 {
		t.Fatalf("expected 2 stored routes, got %v", grants.replaced["u1"])
	}
}

func TestPermissionsReplaceGrantsValidation(t *testing.T) {
	dir := stubDirectory{"u1": {ID: "u1", Role: authz.RoleStaff, Active: true}}
	router, sessions := newPermissionsRouter(t, dir, &stubGrants{})

	caller := superCaller()
	res := httptest.NewRecorder()
	req := permissionsRequest(t, sessions, http.MethodPut, "/permissions/u1", `{"routes":["tasks"]}`, &caller)
	router.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for route without leading slash, got %d", res.Code)
	}
}

func TestPermissionsReplaceGrantsSuperTargetConflict(t *testing.T) {
	dir := stubDirectory{"s1": {ID: "s1", Role: authz.RoleSuper, Active: true}}
	router, sessions := newPermissionsRouter(t, dir, &stubGrants{})

	caller := superCaller()
	res := httptest.NewRecorder()
	req := permissionsRequest(t, sessions, http.MethodPut, "/permissions/s1", `{"routes":["/tasks"]}`, &caller)
	router.ServeHTTP(res, req)
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestPermissionsReplaceGrantsUnknownPrincipal(t *testing.T) {
	router, sessions := newPermissionsRouter(t, stubDirectory{}, &stubGrants{})

	caller := superCaller()
	res := httptest.NewRecorder()
	req := permissionsRequest(t, sessions, http.MethodPut, "/permissions/ghost", `{"routes":["/tasks"]}`, &caller)
	router.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}
