package config

import "errors"

// Errors returned by Load and Validate.
var (
	ErrLoadConfig      = errors.New("load config failed")
	ErrInvalidConfig   = errors.New("invalid config")
	ErrUnknownProvider = errors.New("unknown identity provider")
)
