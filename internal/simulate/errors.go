package simulate

import "errors"

// Sentinel errors for simulation runs.
var (
	ErrUnhealthy = errors.New("service unhealthy")
	ErrSignIn    = errors.New("sign-in failed")
	ErrRequest   = errors.New("request failed")
	ErrMismatch  = errors.New("prediction mismatch")
)
