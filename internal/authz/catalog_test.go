package authz_test

import (
	"testing"

	"github.com/dreamtoapp/jbrtechno-admin/internal/authz"
	_ "github.com/dreamtoapp/jbrtechno-admin/testing"
)

func TestCatalogSetsAreDisjoint(t *testing.T) {
	catalog := authz.DefaultCatalog()
	for _, info := range catalog.AssignableRoutes() {
		if catalog.IsDefaultRoute(info.Route) {
			t.Fatalf("route %s is both default and assignable", info.Route)
		}
	}
}

func TestCatalogDefaultRoutes(t *testing.T) {
	catalog := authz.DefaultCatalog()
	for _, route := range []string{"/", "/settings/profile", "/tasks/my-tasks", "/my-time", "/notes", "/organizational-structure"} {
		if !catalog.IsDefaultRoute(route) {
			t.Fatalf("expected %s to be a default route", route)
		}
	}
	if catalog.IsDefaultRoute("/tasks") {
		t.Fatalf("/tasks must not be a default route")
	}
}

func TestCatalogCovers(t *testing.T) {
	catalog := authz.DefaultCatalog()
	cases := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/tasks", true},
		{"/tasks/42/edit", true},
		{"/applications/interviews", true},
		{"/settings/profile", true},
		{"/totally-unknown", false},
		{"/tasksX", false},
	}
	for _, tc := range cases {
		if got := catalog.Covers(tc.path); got != tc.want {
			t.Fatalf("Covers(%s) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestCatalogRootDoesNotCoverEverything(t *testing.T) {
	catalog := authz.NewCatalog([]string{"/"}, nil)
	if !catalog.Covers("/") {
		t.Fatalf("expected / to cover itself")
	}
	if catalog.Covers("/anything") {
		t.Fatalf("the dashboard root must not protect arbitrary paths")
	}
}

func TestCatalogLabelFallback(t *testing.T) {
	catalog := authz.NewCatalog(nil, []authz.RouteInfo{{Route: "/source-of-income"}})
	routes := catalog.AssignableRoutes()
	if len(routes) != 1 {
		t.Fatalf("expected 1 assignable route, got %d", len(routes))
	}
	if routes[0].Label != "Source Of Income" {
		t.Fatalf("unexpected fallback label %q", routes[0].Label)
	}
}

func TestAncestorPaths(t *testing.T) {
	got := authz.AncestorPaths("/accounting/reports/monthly")
	want := []string{"/accounting/reports/monthly", "/accounting/reports", "/accounting"}
	if len(got) != len(want) {
		t.Fatalf("expected %d prefixes, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("prefix %d = %s, want %s", i, got[i], want[i])
		}
	}
	if prefixes := authz.AncestorPaths("/"); len(prefixes) != 0 {
		t.Fatalf("the bare root must yield no prefixes, got %v", prefixes)
	}
}

func TestNormalizeRoute(t *testing.T) {
	if got := authz.NormalizeRoute("tasks"); got != "/tasks" {
		t.Fatalf("expected /tasks, got %s", got)
	}
	if got := authz.NormalizeRoute("/tasks"); got != "/tasks" {
		t.Fatalf("expected /tasks unchanged, got %s", got)
	}
}
