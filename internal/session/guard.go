package session

import "strings"

// Redirect targets used by Guard
const (
	LoginRoute   = "/login"
	DefaultRoute = "/"
)

// Verdict is the kind of Decision
type Verdict int

const (
	// Pending means the Session is still loading; render a placeholder and do not redirect
	Pending Verdict = iota
	// Redirect means the view must not render; go to Decision.Target instead
	Redirect
	// Allow means the view may render
	Allow
)

func (v Verdict) String() string {
	switch v {
	case Pending:
		return "pending"
	case Redirect:
		return "redirect"
	case Allow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Guard
type Decision struct {
	Verdict Verdict
	// Target is set for Redirect: LoginRoute when unauthenticated,
	// DefaultRoute when the required role is missing.
	Target string
}

// Guard decides whether a protected view may render for s.
//
// A loading Session is Pending. Without an identity the view redirects to
// LoginRoute. When requiredRole is non-empty, at least one role assignment must
// contain it (case-insensitive), else the view redirects to DefaultRoute.
// Guard has no side effects.
func Guard(s Session, requiredRole string) Decision {
	switch {
	case s.Loading:
		return Decision{Verdict: Pending}
	case !s.Authenticated():
		return Decision{Verdict: Redirect, Target: LoginRoute}
	case requiredRole != "" && !s.HasRole(requiredRole):
		return Decision{Verdict: Redirect, Target: DefaultRoute}
	default:
		return Decision{Verdict: Allow}
	}
}

// Route is a protected view and the role it requires ("" for any identity)
type Route struct {
	Path         string
	RequiredRole string
	Title        string
}

// Routes lists the protected views of the console
var Routes = []Route{
	{Path: "/dashboard", Title: "Dashboard"},
	{Path: "/admin", RequiredRole: "admin", Title: "Administration"},
	{Path: "/admin/users", RequiredRole: "admin", Title: "Users"},
	{Path: "/admin/teachers", RequiredRole: "admin", Title: "Teachers"},
	{Path: "/academic-years", RequiredRole: "admin", Title: "Academic years"},
	{Path: "/subjects", RequiredRole: "admin", Title: "Subjects"},
	{Path: "/rooms", RequiredRole: "admin", Title: "Rooms"},
	{Path: "/classrooms", RequiredRole: "admin", Title: "Classrooms"},
	{Path: "/students", RequiredRole: "admin", Title: "Students"},
}

// Lookup finds a route by path; a leading slash is optional
func Lookup(path string) (Route, bool) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for _, r := range Routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Check applies Guard to a route
func (r Route) Check(s Session) Decision {
	return Guard(s, r.RequiredRole)
}
