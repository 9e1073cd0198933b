package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the informational view of a bearer token. It is decoded without
// verifying the signature and must never gate access.
type Claims struct {
	Subject   string
	UserID    string
	TenantID  string
	Role      string
	Email     string
	ExpiresAt *time.Time
}

// Expired reports whether the token's exp claim lies before now.
// Tokens without exp never expire.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

type tokenClaims struct {
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// DecodeClaims reads the payload of a JWT without verifying it. Opaque
// (non-JWT) tokens return an error.
func DecodeClaims(token string) (Claims, error) {
	if token == "" {
		return Claims{}, fmt.Errorf("decode claims: empty token")
	}
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, fmt.Errorf("decode claims: %w", err)
	}
	c := Claims{
		Subject:  tc.Subject,
		UserID:   tc.UserID,
		TenantID: tc.TenantID,
		Role:     tc.Role,
		Email:    tc.Email,
	}
	if tc.ExpiresAt != nil {
		exp := tc.ExpiresAt.Time
		c.ExpiresAt = &exp
	}
	if c.UserID == "" {
		c.UserID = c.Subject
	}
	return c, nil
}
