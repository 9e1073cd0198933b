// Package main mints bearer tokens accepted by the local mock backend, for
// scripting against it with curl. Tokens use the mock's signing key and are
// worthless anywhere else.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	jwttoken "billdash/internal/jwt_token"
	"billdash/internal/mockbackend"
	"billdash/internal/models"
	"billdash/internal/platform/config"
)

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expiresIn"`
	Claims    map[string]string `json:"claims"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	userID := flag.String("user-id", "", "user ID; generated if empty")
	tenantID := flag.String("tenant-id", "", "tenant ID; generated if empty")
	role := flag.String("role", models.RoleAdmin, "role claim (admin or user)")
	email := flag.String("email", "dev@billdash.local", "email claim")
	ttl := flag.Duration("ttl", jwttoken.DefaultTokenTTL, "token time-to-live")
	asJSON := flag.Bool("json", false, "print JSON instead of the bare token")
	flag.Parse()

	if *userID == "" {
		*userID = uuid.NewString()
	}
	if *tenantID == "" {
		*tenantID = uuid.NewString()
	}

	cfg := config.MockBackendFromEnv()
	svc := jwttoken.NewJWTService(cfg.SigningKey, mockbackend.TokenIssuer, *ttl)
	token, err := svc.GenerateAccessToken(context.Background(), models.User{
		ID:       *userID,
		Email:    *email,
		Role:     *role,
		TenantID: *tenantID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}

	if !*asJSON {
		fmt.Println(token)
		return
	}
	out := tokenOutput{
		Token:     token,
		ExpiresIn: ttl.Round(time.Second).String(),
		Claims: map[string]string{
			"userId":   *userID,
			"tenantId": *tenantID,
			"role":     *role,
			"email":    *email,
		},
		Usage: map[string]string{
			"curl": fmt.Sprintf(`curl -H "Authorization: Bearer %s" http://localhost%s/api/usage`, token, cfg.Addr),
		},
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
