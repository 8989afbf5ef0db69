package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/coursesms/courses/internal/timex"
)

// envConfig mirrors the environment the original deployment used. TTLs
// are whole seconds.
type envConfig struct {
	EndpointAddrGRPC   string `env:"GRPC_ADDR"`
	MetricsAddr        string `env:"METRICS_ADDR"`
	DatabaseDriver     string `env:"DATABASE_DRIVER"`
	DatabaseDSN        string `env:"DATABASE_URL"`
	RedisAddr          string `env:"REDIS_ADDR"`
	RedisPrefix        string `env:"REDIS_PREFIX"`
	AccessTokenSecret  string `env:"JWT_SECRET"`
	RefreshTokenSecret string `env:"REFRESH_TOKEN_SECRET"`
	AccessTokenTTL     int64  `env:"ACCESS_TOKEN_EXPIRES_IN"`
	RefreshTokenTTL    int64  `env:"REFRESH_TOKEN_EXPIRES_IN"`
	TokenIssuer        string `env:"TOKEN_ISSUER"`
	TokenAudience      string `env:"TOKEN_AUDIENCE"`
	LogLevel           string `env:"LOG_LEVEL"`
}

// parseEnv overlays set environment variables onto config. Unset
// variables leave the current value alone.
func parseEnv(config *Config) error {
	e := envConfig{
		EndpointAddrGRPC:   config.EndpointAddrGRPC,
		MetricsAddr:        config.MetricsAddr,
		DatabaseDriver:     config.DatabaseDriver,
		DatabaseDSN:        config.DatabaseDSN,
		RedisAddr:          config.RedisAddr,
		RedisPrefix:        config.RedisPrefix,
		AccessTokenSecret:  config.AccessTokenSecret,
		RefreshTokenSecret: config.RefreshTokenSecret,
		AccessTokenTTL:     int64(config.AccessTokenTTL.Seconds()),
		RefreshTokenTTL:    int64(config.RefreshTokenTTL.Seconds()),
		TokenIssuer:        config.TokenIssuer,
		TokenAudience:      config.TokenAudience,
		LogLevel:           config.LogLevel,
	}
	accessSeconds, refreshSeconds := e.AccessTokenTTL, e.RefreshTokenTTL

	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	config.EndpointAddrGRPC = e.EndpointAddrGRPC
	config.MetricsAddr = e.MetricsAddr
	config.DatabaseDriver = e.DatabaseDriver
	config.DatabaseDSN = e.DatabaseDSN
	config.RedisAddr = e.RedisAddr
	config.RedisPrefix = e.RedisPrefix
	config.AccessTokenSecret = e.AccessTokenSecret
	config.RefreshTokenSecret = e.RefreshTokenSecret
	config.TokenIssuer = e.TokenIssuer
	config.TokenAudience = e.TokenAudience
	config.LogLevel = e.LogLevel
	if e.AccessTokenTTL != accessSeconds {
		config.AccessTokenTTL = timex.Seconds(e.AccessTokenTTL)
	}
	if e.RefreshTokenTTL != refreshSeconds {
		config.RefreshTokenTTL = timex.Seconds(e.RefreshTokenTTL)
	}
	return nil
}
