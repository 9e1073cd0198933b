package admin

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"billdash/pkg/requestcontext"
)

// AdminMiddlewareSuite checks that non-admin callers never reach the handler.
type AdminMiddlewareSuite struct {
	suite.Suite
	called  bool
	handler http.Handler
}

func TestAdminMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AdminMiddlewareSuite))
}

func (s *AdminMiddlewareSuite) SetupTest() {
	s.called = false
	s.handler = RequireAdmin(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.called = true
	}))
}

func (s *AdminMiddlewareSuite) serve(ctx context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/billing/calculate", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *AdminMiddlewareSuite) TestRoles() {
	s.Run("admin passes", func() {
		ctx := requestcontext.WithIdentity(context.Background(), requestcontext.Identity{UserID: "u-1", Role: RoleAdmin})
		w := s.serve(ctx)
		s.Equal(http.StatusOK, w.Code)
		s.True(s.called)
	})

	s.Run("member is forbidden", func() {
		s.called = false
		ctx := requestcontext.WithIdentity(context.Background(), requestcontext.Identity{UserID: "u-2", Role: "user"})
		w := s.serve(ctx)
		s.Equal(http.StatusForbidden, w.Code)
		s.Contains(w.Body.String(), "Admin access required")
		s.False(s.called)
	})

	s.Run("missing identity is unauthorized", func() {
		s.called = false
		w := s.serve(context.Background())
		s.Equal(http.StatusUnauthorized, w.Code)
		s.False(s.called)
	})
}
