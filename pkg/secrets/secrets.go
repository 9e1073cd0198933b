// Package secrets hashes passwords and mints random identifiers.
package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "billdash/pkg/domain-errors"
)

// RandomHex returns n random bytes hex-encoded (2n characters).
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeServer, "could not generate identifier")
	}
	return hex.EncodeToString(buf), nil
}

// Hash bcrypts a password at the given cost. Costs outside bcrypt's range
// fall back to bcrypt.DefaultCost.
func Hash(password string, cost int) ([]byte, error) {
	if password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "password cannot be empty")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, dErrors.New(dErrors.CodeValidation, "password is too long")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeServer, "could not hash password")
	}
	return hashed, nil
}

// Verify checks password against a bcrypt hash. A mismatch is an auth error.
func Verify(password string, hash []byte) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeAuth, "password mismatch")
		}
		return dErrors.Wrap(err, dErrors.CodeServer, "could not verify password")
	}
	return nil
}
