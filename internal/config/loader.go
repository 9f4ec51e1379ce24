package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// metricNamePattern is the Prometheus metric name grammar.
var metricNamePattern = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

const (
	envPrefix  = "CADENCE_"
	envFileVar = "CADENCE_ENV_FILE"
	configFile = "CADENCE_CONFIG"
	maxShards  = 1024
	maxPercent = 100
	minTickMS  = 10

	// Emails in static_users contain dots, so keys are split on "::".
	keyDelim = "::"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. dotenv file if CADENCE_ENV_FILE is set (only fills unset variables)
//  3. file (YAML) if CADENCE_CONFIG is set
//  4. env (prefix CADENCE_)
func Load() (*Config, error) {
	base := New()

	if path := os.Getenv(envFileVar); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("%w: env file %s: %w", ErrLoadConfig, path, err)
		}
	}

	k := koanf.New(keyDelim)

	if path := os.Getenv(configFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Map env keys like CADENCE_TICK_INTERVAL_MS -> tick_interval_ms (flat keys).
	envProvider := env.Provider(envPrefix, keyDelim, func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// Configured users replace the built-in operator instead of merging.
	if k.Exists("static_users") {
		cfg.StaticUsers = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.TickIntervalMS < minTickMS:
		return invalid("tick_interval_ms must be at least %d", minTickMS)
	case c.SessionIdleTimeoutS <= 0:
		return invalid("session_idle_timeout_s must be positive")
	case c.SessionCookieName == "":
		return invalid("session_cookie_name must not be empty")
	case c.ShardCount <= 0 || c.ShardCount > maxShards:
		return invalid("shard_count must be in [1, %d]", maxShards)
	case c.DedupeSize < 0:
		return invalid("dedupe_size must not be negative")
	case c.VolatilityFloor <= 0:
		return invalid("volatility_floor must be positive")
	case c.ConfidenceMin < 0 || c.ConfidenceMax > maxPercent || c.ConfidenceMin >= c.ConfidenceMax:
		return invalid("confidence bounds must satisfy 0 <= min < max <= %d", maxPercent)
	case !metricNamePattern.MatchString(c.MetricsNamespace):
		return invalid("metrics_namespace %q is not a valid metric name prefix", c.MetricsNamespace)
	case c.LoginRatePerSec <= 0 || c.LoginBurst <= 0:
		return invalid("login_rate_per_sec and login_burst must be positive")
	case c.IdentityTimeoutMS <= 0:
		return invalid("identity_timeout_ms must be positive")
	}

	switch c.IdentityProvider {
	case ProviderStatic:
		if len(c.StaticUsers) == 0 {
			return invalid("static provider needs at least one entry in static_users")
		}
	case ProviderIdentityToolkit:
		if c.IdentityAPIKey == "" || c.IdentityEndpoint == "" {
			return invalid("identitytoolkit provider needs identity_endpoint and identity_api_key")
		}
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidConfig, ErrUnknownProvider, c.IdentityProvider)
	}

	if _, err := c.Location(); err != nil {
		return invalid("timezone %q: %v", c.Timezone, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
