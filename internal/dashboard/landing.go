package dashboard

import (
	"context"

	"billdash/internal/models"
)

// Link is a navigation entry.
type Link struct {
	Label string
	Route string
}

// LandingView is the public front page.
type LandingView struct {
	SignedIn bool
	User     *models.User
	Links    []Link
}

// Landing renders the front page and navigation.
type Landing struct {
	*deps
}

// Load never redirects. Signed-in callers get the app sections, others the
// sign-in entry points.
func (l *Landing) Load(ctx context.Context) LandingView {
	if !l.sessions.IsAuthenticated(ctx) {
		return LandingView{Links: []Link{
			{Label: "Get Started", Route: "/register"},
			{Label: "Sign In", Route: "/login"},
		}}
	}

	view := LandingView{SignedIn: true, Links: []Link{
		{Label: "Dashboard", Route: "/dashboard"},
		{Label: "Usage", Route: "/usage"},
		{Label: "Billing", Route: "/billing"},
	}}
	sess, err := l.sessions.Read(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "failed to read session", "error", err)
		return view
	}
	view.User = sess.User
	return view
}
