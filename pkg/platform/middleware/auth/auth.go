package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"billdash/pkg/platform/httputil"
	"billdash/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the identity a validator extracts from a bearer token.
type JWTClaims struct {
	UserID   string
	TenantID string
	Role     string
	Email    string
	JTI      string
}

// RequireAuth validates the bearer token and stores the caller identity in
// the request context. Tokens without a user or tenant are rejected.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteMessage(w, http.StatusUnauthorized, "No token provided")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil || claims.UserID == "" || claims.TenantID == "" {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteMessage(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithIdentity(ctx, requestcontext.Identity{
				UserID:   claims.UserID,
				TenantID: claims.TenantID,
				Role:     claims.Role,
				Email:    claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
