// Package session persists the signed-in state of the dashboard: the bearer
// token plus the user and tenant returned at login. Entries are written and
// read independently; nothing validates the token beyond its presence.
package session

import "billdash/internal/models"

// Session is the persisted triple. Any field may be absent.
type Session struct {
	Token  string
	User   *models.User
	Tenant *models.Tenant
}

// Authenticated reports whether a token is present.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// IsAdmin reports whether the stored user carries the admin role.
func (s Session) IsAdmin() bool {
	return s.User.IsAdmin()
}
