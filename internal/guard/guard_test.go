package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"billdash/internal/models"
	"billdash/internal/session"
	"billdash/internal/session/store/memory"
)

type staticChecker bool

func (c staticChecker) IsAuthenticated(context.Context) bool { return bool(c) }

func TestRequire(t *testing.T) {
	ctx := context.Background()

	t.Run("signed out is redirected to login", func(t *testing.T) {
		d := Require(ctx, staticChecker(false))
		assert.Equal(t, Decision{Action: Redirect, Location: RouteLogin}, d)
		assert.False(t, d.Proceeds())
	})

	t.Run("signed in proceeds", func(t *testing.T) {
		d := Require(ctx, staticChecker(true))
		assert.True(t, d.Proceeds())
		assert.Empty(t, d.Location)
	})

	t.Run("missing checker is treated as signed out", func(t *testing.T) {
		assert.Equal(t, Redirect, Require(ctx, nil).Action)
	})

	t.Run("works against the session manager", func(t *testing.T) {
		m := session.NewManager(memory.New(), nil)
		assert.Equal(t, Redirect, Require(ctx, m).Action)

		assert.NoError(t, m.Save(ctx, "tok1", nil, nil))
		assert.Equal(t, Proceed, Require(ctx, m).Action)
	})
}

func TestRequireGuest(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Decision{Action: Redirect, Location: RouteDashboard}, RequireGuest(ctx, staticChecker(true)))
	assert.True(t, RequireGuest(ctx, staticChecker(false)).Proceeds())
	assert.True(t, RequireGuest(ctx, nil).Proceeds())
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin(session.Session{User: &models.User{Role: models.RoleAdmin}}))
	assert.False(t, IsAdmin(session.Session{User: &models.User{Role: models.RoleUser}}))
	assert.False(t, IsAdmin(session.Session{}))
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "proceed", Proceed.String())
	assert.Equal(t, "redirect", Redirect.String())
}
