// Package auth hashes passwords and issues bearer tokens.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/papertrail/internal/domain"
)

// Password bounds. bcrypt only reads the first 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

const bcryptCost = 12

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("password does not match")

// HashPassword returns the bcrypt hash stored for a new account.
func HashPassword(password string) (string, error) {
	return hashWithCost(password, bcryptCost)
}

func hashWithCost(password string, cost int) (string, error) {
	switch {
	case len(password) < MinPasswordLength:
		return "", domain.ErrPasswordTooShort
	case len(password) > MaxPasswordBytes:
		return "", domain.ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares password with a stored hash. A wrong password
// is ErrPasswordMismatch; a corrupt hash is any other error.
func VerifyPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("verify password: %w", err)
	}
}
