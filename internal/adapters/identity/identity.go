// Package identity signs operators in with email and password.
package identity

import (
	"context"
	"strings"
)

// Identity is a signed-in operator.
type Identity struct {
	Email   string
	LocalID string
	IDToken string
}

// Authenticator verifies an email/password pair.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
}

// NormalizeEmail trims and lower-cases an address so lookups and throttling
// agree on one key per operator.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkInput(email, password string) error {
	if email == "" {
		return newError(ErrInvalidCredentials, CodeMissingEmail)
	}
	if password == "" {
		return newError(ErrInvalidCredentials, CodeMissingPassword)
	}
	return nil
}
