package dashboard

import (
	"context"

	"billdash/internal/guard"
	"billdash/internal/models"
	"billdash/internal/session"
	domainerrors "billdash/pkg/domain-errors"
)

// Auth drives the register, login and logout flows.
type Auth struct {
	*deps
}

// AuthResult is the outcome of a sign-in or sign-out. On success Decision
// redirects to the next page; on failure it proceeds (stay on the form) and
// Alert explains why.
type AuthResult struct {
	Decision guard.Decision
	Session  session.Session
	Alert    *Alert
}

// Register creates the tenant and account, then stores the new session.
func (a *Auth) Register(ctx context.Context, req models.RegisterRequest) AuthResult {
	resp, err := a.api.Register(ctx, req)
	if err != nil {
		a.logger.InfoContext(ctx, "registration rejected", "error", err)
		return AuthResult{Alert: danger(serverMessageOr(err, MsgRegistrationFailed))}
	}
	return a.signIn(ctx, resp, MsgRegistrationFailed)
}

// Login exchanges credentials for a session.
func (a *Auth) Login(ctx context.Context, req models.LoginRequest) AuthResult {
	resp, err := a.api.Login(ctx, req)
	if err != nil {
		a.logger.InfoContext(ctx, "login rejected", "error", err)
		return AuthResult{Alert: danger(serverMessageOr(err, MsgLoginFailed))}
	}
	return a.signIn(ctx, resp, MsgLoginFailed)
}

// Logout forgets the session and sends the caller to the login page.
func (a *Auth) Logout(ctx context.Context) (AuthResult, error) {
	if err := a.sessions.Clear(ctx); err != nil {
		return AuthResult{}, domainerrors.Wrap(err, domainerrors.CodeServer, "clear session")
	}
	return AuthResult{Decision: guard.Decision{Action: guard.Redirect, Location: guard.RouteLogin}}, nil
}

func (a *Auth) signIn(ctx context.Context, resp *models.AuthResponse, fallback string) AuthResult {
	if err := a.sessions.Save(ctx, resp.Token, resp.User, resp.Tenant); err != nil {
		a.logger.ErrorContext(ctx, "failed to persist session", "error", err)
		return AuthResult{Alert: danger(fallback)}
	}
	return AuthResult{
		Decision: guard.Decision{Action: guard.Redirect, Location: guard.RouteDashboard},
		Session:  session.Session{Token: resp.Token, User: resp.User, Tenant: resp.Tenant},
	}
}

// serverMessageOr returns the backend's own message, or fallback when the
// failure carried none.
func serverMessageOr(err error, fallback string) string {
	if msg := domainerrors.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}
