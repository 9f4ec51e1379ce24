// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Identity provider names accepted by IdentityProvider.
const (
	ProviderStatic          = "static"
	ProviderIdentityToolkit = "identitytoolkit"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Timezone is the IANA zone used to read the wall clock; empty means local.
	Timezone string `koanf:"timezone"`

	// TickIntervalMS is the period of the status re-evaluation tick.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// SessionIdleTimeoutS evicts sessions nobody has touched for this long.
	SessionIdleTimeoutS int `koanf:"session_idle_timeout_s"`

	// SessionCookieName names the cookie carrying the session id.
	SessionCookieName string `koanf:"session_cookie_name"`

	// SecureCookies marks the session cookie Secure.
	SecureCookies bool `koanf:"secure_cookies"`

	// ShardCount configures the number of shards in the session store.
	ShardCount int `koanf:"shard_count"`

	// DedupeSize bounds the per-session submission id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// HighlightThreshold marks console rows whose value is at least this.
	HighlightThreshold float64 `koanf:"highlight_threshold"`

	// VolatilityFloor, ConfidenceMin and ConfidenceMax tune the prediction engine.
	VolatilityFloor float64 `koanf:"volatility_floor"`
	ConfidenceMin   float64 `koanf:"confidence_min"`
	ConfidenceMax   float64 `koanf:"confidence_max"`

	// IdentityProvider selects the authenticator: static or identitytoolkit.
	IdentityProvider string `koanf:"identity_provider"`

	// IdentityEndpoint is the base URL of the identity toolkit REST API.
	IdentityEndpoint string `koanf:"identity_endpoint"`

	// IdentityAPIKey is passed as the key query parameter.
	IdentityAPIKey string `koanf:"identity_api_key"`

	// IdentityTimeoutMS bounds one sign-in round trip.
	IdentityTimeoutMS int `koanf:"identity_timeout_ms"`

	// LoginRatePerSec and LoginBurst throttle sign-in attempts per email.
	LoginRatePerSec float64 `koanf:"login_rate_per_sec"`
	LoginBurst      int     `koanf:"login_burst"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsInstance, when set, is attached to every metric as the
	// instance label.
	MetricsInstance string `koanf:"metrics_instance"`

	// StaticUsers maps email to password for the static provider. A file or
	// env value replaces the built-in operator entirely.
	StaticUsers map[string]string `koanf:"static_users"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		TickIntervalMS:      1000,
		SessionIdleTimeoutS: 1800,
		SessionCookieName:   "cadence_session",
		ShardCount:          8,
		DedupeSize:          4096,
		HighlightThreshold:  5,
		VolatilityFloor:     10,
		ConfidenceMin:       40,
		ConfidenceMax:       98,
		IdentityProvider:    ProviderStatic,
		IdentityEndpoint:    "https://identitytoolkit.googleapis.com/v1",
		IdentityTimeoutMS:   5000,
		LoginRatePerSec:     0.5,
		LoginBurst:          5,
		MetricsNamespace:    "cadence",
		StaticUsers: map[string]string{
			"operator@cadence.local": "cadence",
		},
	}
}

// TickInterval returns the tick period as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// SessionIdleTimeout returns the idle eviction window as a duration.
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleTimeoutS) * time.Second
}

// IdentityTimeout returns the identity round trip bound as a duration.
func (c *Config) IdentityTimeout() time.Duration {
	return time.Duration(c.IdentityTimeoutMS) * time.Millisecond
}

// Location resolves Timezone; an empty value yields time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
