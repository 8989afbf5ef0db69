package config

import (
	"flag"
	"io"
	"time"

	"github.com/coursesms/courses/internal/flagx"
)

var knownFlags = []string{"-a", "-m", "-driver", "-d", "-redis", "-s", "-rs", "-t", "-r", "-l"}

// parseFlags overlays command-line flags onto config.
//
//	-a string       gRPC bind address (e.g. ":50051")
//	-m string       metrics bind address
//	-driver string  postgres, sqlite or redis
//	-d string       database DSN
//	-redis string   Redis address
//	-s string       access token secret
//	-rs string      refresh token secret
//	-t int          access token TTL, seconds
//	-r int          refresh token TTL, seconds
//	-l string       log level
//
// Only the flags above are looked at, so subcommand flags in args pass
// through untouched.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port to expose metrics")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "rs", config.RefreshTokenSecret, "refresh token secret")
	accessTTL := fs.Int64("t", int64(config.AccessTokenTTL/time.Second), "access token TTL (in seconds)")
	refreshTTL := fs.Int64("r", int64(config.RefreshTokenTTL/time.Second), "refresh token TTL (in seconds)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenTTL = time.Duration(*accessTTL) * time.Second
		case "r":
			config.RefreshTokenTTL = time.Duration(*refreshTTL) * time.Second
		}
	})
	return nil
}
