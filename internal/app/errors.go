package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotStarted      = errors.New("service not started")
	ErrNoAuthenticator = errors.New("no authenticator configured")
)
