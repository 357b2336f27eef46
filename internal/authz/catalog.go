package authz

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RouteInfo pairs a logical route with its display label.
type RouteInfo struct {
	Route string `json:"route"`
	Label string `json:"label"`
}

// Catalog is the immutable registry of recognized logical routes. It is
// constructed once at startup and safe for unsynchronized concurrent reads.
type Catalog struct {
	defaults      map[string]struct{}
	assignable    []RouteInfo
	assignableSet map[string]struct{}
}

// NewCatalog builds a catalog from the default route list and the full
// operational route table. Operational routes that are also default routes
// are excluded from the assignable set; the two sets stay disjoint.
func NewCatalog(defaults []string, operational []RouteInfo) *Catalog {
	c := &Catalog{
		defaults:      make(map[string]struct{}, len(defaults)),
		assignableSet: make(map[string]struct{}, len(operational)),
	}
	for _, route := range defaults {
		c.defaults[route] = struct{}{}
	}
	titler := cases.Title(language.English)
	for _, info := range operational {
		if _, ok := c.defaults[info.Route]; ok {
			continue
		}
		if _, ok := c.assignableSet[info.Route]; ok {
			continue
		}
		if info.Label == "" {
			info.Label = titler.String(strings.ReplaceAll(strings.Trim(info.Route, "/"), "-", " "))
		}
		c.assignable = append(c.assignable, info)
		c.assignableSet[info.Route] = struct{}{}
	}
	return c
}

// DefaultCatalog returns the route table of the admin application.
// Default routes cover the baseline self-service pages every active
// principal needs; the rest are assignable individually.
func DefaultCatalog() *Catalog {
	defaults := []string{
		"/",
		"/settings/profile",
		"/tasks/my-tasks",
		"/my-time",
		"/notes",
		"/organizational-structure",
	}
	operational := []RouteInfo{
		{Route: "/", Label: "Dashboard"},
		{Route: "/organizational-structure", Label: "Organizational Structure"},
		{Route: "/applications", Label: "Applications"},
		{Route: "/applications/interviews", Label: "Interviews"},
		{Route: "/staff", Label: "Staff Management"},
		{Route: "/contact-messages", Label: "Contact Messages"},
		{Route: "/accounting", Label: "Accounting"},
		{Route: "/categories", Label: "Categories"},
		{Route: "/costs", Label: "Costs"},
		{Route: "/source-of-income", Label: "Source of Income"},
		{Route: "/subscriptions", Label: "Subscriptions"},
		{Route: "/customers", Label: "Customers"},
		{Route: "/tasks", Label: "Tasks"},
		{Route: "/tasks/my-tasks", Label: "My Tasks"},
		{Route: "/my-time", Label: "My Time"},
		{Route: "/notes", Label: "Administrative Notes"},
		{Route: "/contracts", Label: "Contracts"},
		{Route: "/reports", Label: "Reports"},
		{Route: "/settings", Label: "Settings"},
		{Route: "/users", Label: "Users"},
		{Route: "/clockify-users", Label: "Clockify Users"},
	}
	return NewCatalog(defaults, operational)
}

// IsDefaultRoute reports whether route is implicitly granted to every
// active principal.
func (c *Catalog) IsDefaultRoute(route string) bool {
	_, ok := c.defaults[route]
	return ok
}

// IsAssignableRoute reports whether route can be granted individually.
func (c *Catalog) IsAssignableRoute(route string) bool {
	_, ok := c.assignableSet[route]
	return ok
}

// AssignableRoutes returns the ordered assignable route list for pickers.
func (c *Catalog) AssignableRoutes() []RouteInfo {
	out := make([]RouteInfo, len(c.assignable))
	copy(out, c.assignable)
	return out
}

// Covers reports whether path falls under any known route: either an exact
// match or a descendant of a known base. The dashboard root only matches
// exactly, otherwise every path would be protected by it.
func (c *Catalog) Covers(path string) bool {
	check := func(base string) bool {
		if path == base {
			return true
		}
		return base != "/" && strings.HasPrefix(path, base+"/")
	}
	for base := range c.defaults {
		if check(base) {
			return true
		}
	}
	for base := range c.assignableSet {
		if check(base) {
			return true
		}
	}
	return false
}

// AncestorPaths returns the route and its ancestor prefixes ordered from
// most specific to root, excluding the bare "/" path. For "/a/b/c" it
// yields ["/a/b/c", "/a/b", "/a"].
func AncestorPaths(route string) []string {
	parts := strings.Split(route, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	prefixes := make([]string, 0, len(segments))
	for i := len(segments); i > 0; i-- {
		prefixes = append(prefixes, "/"+strings.Join(segments[:i], "/"))
	}
	return prefixes
}

// NormalizeRoute guarantees a leading slash on the requested path.
func NormalizeRoute(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
