package identity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// StaticAuthenticator checks credentials against a fixed user table.
type StaticAuthenticator struct {
	users map[string][sha256.Size]byte
}

var _ Authenticator = (*StaticAuthenticator)(nil)

// NewStatic builds an authenticator from an email to password map.
func NewStatic(users map[string]string) *StaticAuthenticator {
	s := &StaticAuthenticator{users: make(map[string][sha256.Size]byte, len(users))}
	for email, password := range users {
		s.users[NormalizeEmail(email)] = sha256.Sum256([]byte(password))
	}
	return s
}

// SignIn implements Authenticator.
func (s *StaticAuthenticator) SignIn(_ context.Context, email, password string) (Identity, error) {
	email = NormalizeEmail(email)
	if err := checkInput(email, password); err != nil {
		return Identity{}, err
	}

	want, ok := s.users[email]
	got := sha256.Sum256([]byte(password))
	if !ok || subtle.ConstantTimeCompare(want[:], got[:]) != 1 {
		return Identity{}, newError(ErrInvalidCredentials, CodeInvalidCredentials)
	}

	id := sha256.Sum256([]byte(email))
	return Identity{Email: email, LocalID: hex.EncodeToString(id[:8])}, nil
}
