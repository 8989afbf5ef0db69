package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/coursesms/courses/internal/flagx"
	"github.com/coursesms/courses/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// "15m" style strings or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC   string         `json:"endpoint_addr_grpc"`
	MetricsAddr        string         `json:"metrics_addr"`
	DatabaseDriver     string         `json:"database_driver"`
	DatabaseDSN        string         `json:"database_dsn"`
	RedisAddr          string         `json:"redis_addr"`
	RedisPrefix        string         `json:"redis_prefix"`
	AccessTokenSecret  string         `json:"access_token_secret"`
	RefreshTokenSecret string         `json:"refresh_token_secret"`
	AccessTokenTTL     timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL    timex.Duration `json:"refresh_token_ttl"`
	TokenIssuer        string         `json:"token_issuer"`
	TokenAudience      string         `json:"token_audience"`
	LogLevel           string         `json:"log_level"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays the file named by -c/-config onto config. Keys
// missing from the file keep their current values.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.JsonConfigFlags(args)
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", jsonConfigFile, err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPrefix, c.RedisPrefix)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setString(&config.TokenAudience, c.TokenAudience)
	setString(&config.LogLevel, c.LogLevel)
	if c.AccessTokenTTL.Duration != 0 {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL.Duration != 0 {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	return nil
}
