package jwttoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"billdash/internal/models"
	dErrors "billdash/pkg/domain-errors"
	"billdash/pkg/requestcontext"
)

// DefaultTokenTTL matches the billing API's one-day sessions.
const DefaultTokenTTL = 24 * time.Hour

// AccessTokenClaims are the claims the billing API puts in its bearer tokens.
type AccessTokenClaims struct {
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

func NewJWTService(signingKey, issuer string, tokenTTL time.Duration) *JWTService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		tokenTTL:   tokenTTL,
	}
}

// GenerateAccessToken signs an HS256 token for the user. Issue and expiry
// times derive from the request clock.
func (s *JWTService) GenerateAccessToken(ctx context.Context, user models.User) (string, error) {
	if user.ID == "" || user.TenantID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "token subject requires user and tenant")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := requestcontext.Now(ctx)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        hex.EncodeToString(b),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(tokenString string) (*AccessTokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeAuth, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeAuth, "invalid token")
	}

	claims, ok := parsed.Claims.(*AccessTokenClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeAuth, "invalid token claims")
	}
	return claims, nil
}
