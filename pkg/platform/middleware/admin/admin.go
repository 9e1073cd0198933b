package admin

import (
	"log/slog"
	"net/http"

	"billdash/pkg/platform/httputil"
	"billdash/pkg/requestcontext"
)

// RoleAdmin is the role allowed through RequireAdmin.
const RoleAdmin = "admin"

// RequireAdmin lets only admin identities through. It must run after
// auth.RequireAuth; a request without identity is treated as unauthenticated.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, ok := requestcontext.GetIdentity(ctx)
			if !ok {
				httputil.WriteMessage(w, http.StatusUnauthorized, "No token provided")
				return
			}
			if identity.Role != RoleAdmin {
				logger.WarnContext(ctx, "admin route refused",
					"user_id", identity.UserID,
					"role", identity.Role,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteMessage(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
