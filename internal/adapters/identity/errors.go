package identity

import (
	"errors"
	"strings"
)

// Sentinel kinds for sign-in failures.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many sign-in attempts")
	ErrUnavailable        = errors.New("identity provider unavailable")
)

// Provider error codes.
const (
	CodeInvalidCredentials = "INVALID_LOGIN_CREDENTIALS"
	CodeMissingEmail       = "MISSING_EMAIL"
	CodeMissingPassword    = "MISSING_PASSWORD"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS_TRY_LATER"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// Error carries the provider's code next to the sentinel kind.
type Error struct {
	Code string
	Kind error
}

func (e *Error) Error() string { return e.Kind.Error() + ": " + e.Code }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, code string) *Error {
	return &Error{Code: code, Kind: kind}
}

// Denied renders err the way the login page shows it, e.g.
// "ACCESS DENIED: INVALID PASSWORD".
func Denied(err error) string {
	code := CodeUnavailable
	var ie *Error
	if errors.As(err, &ie) && ie.Code != "" {
		code = ie.Code
	}
	code = strings.NewReplacer("_", " ", "-", " ").Replace(code)
	return "ACCESS DENIED: " + strings.ToUpper(strings.TrimSpace(code))
}
