// Package guard decides, before a view runs, whether the caller may enter it.
// It never navigates; callers act on the returned Decision.
package guard

import (
	"context"

	"billdash/internal/session"
)

// Routes the guard redirects to.
const (
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
)

// Action is what the caller should do next.
type Action int

const (
	Proceed Action = iota
	Redirect
)

func (a Action) String() string {
	if a == Redirect {
		return "redirect"
	}
	return "proceed"
}

// Decision is the outcome of a guard check. Location is set only for Redirect.
type Decision struct {
	Action   Action
	Location string
}

// Proceeds reports whether the view may run.
func (d Decision) Proceeds() bool {
	return d.Action == Proceed
}

// AuthChecker reports whether a session token is present.
type AuthChecker interface {
	IsAuthenticated(ctx context.Context) bool
}

// Require admits signed-in callers and redirects everyone else to login.
func Require(ctx context.Context, checker AuthChecker) Decision {
	if checker == nil || !checker.IsAuthenticated(ctx) {
		return Decision{Action: Redirect, Location: RouteLogin}
	}
	return Decision{Action: Proceed}
}

// RequireGuest admits signed-out callers; signed-in ones go to the dashboard.
func RequireGuest(ctx context.Context, checker AuthChecker) Decision {
	if checker != nil && checker.IsAuthenticated(ctx) {
		return Decision{Action: Redirect, Location: RouteDashboard}
	}
	return Decision{Action: Proceed}
}

// IsAdmin reports whether the session's user has the admin role.
func IsAdmin(sess session.Session) bool {
	return sess.IsAdmin()
}
