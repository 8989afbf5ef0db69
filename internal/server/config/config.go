// Package config loads the server and authctl settings: defaults first,
// then an optional JSON file, then environment variables, then flags.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings of the auth core.
//
// The token secrets have no defaults. Validate refuses to start without
// them.
type Config struct {
	EndpointAddrGRPC string
	MetricsAddr      string

	// DatabaseDriver is one of postgres, sqlite or redis.
	DatabaseDriver string
	DatabaseDSN    string
	RedisAddr      string
	RedisPrefix    string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	TokenIssuer        string
	TokenAudience      string

	LogLevel string
}

const defaultTokenParty = "CoursesManagementSystemBE"

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.MetricsAddr = ":9090"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:courses.db?_pragma=busy_timeout(5000)"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPrefix = "courses:"
	c.AccessTokenTTL = 15 * time.Minute
	c.RefreshTokenTTL = 7 * 24 * time.Hour
	c.TokenIssuer = defaultTokenParty
	c.TokenAudience = defaultTokenParty
	c.LogLevel = "info"
}

// Validate reports settings the auth core cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.AccessTokenSecret == "" {
		errs = append(errs, errors.New("access token secret (JWT_SECRET) is required"))
	}
	if c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("refresh token secret (REFRESH_TOKEN_SECRET) is required"))
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("access and refresh token secrets must differ"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("access token TTL must be positive, got %s", c.AccessTokenTTL))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("refresh token TTL must be positive, got %s", c.RefreshTokenTTL))
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DatabaseDriver))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config from defaults, the JSON file named by -c or
// -config in args, the environment and the flags in args, then validates
// it.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
